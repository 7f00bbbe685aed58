// Package identity provides the caller identity key used throughout ronin.
package identity

import (
	"encoding/hex"
	"errors"
	"strings"
)

// Size is the length of a Key in bytes.
const Size = 32

// Key is an opaque caller identity: an Ed25519 public key supplied by the
// environment. Keys are comparable and usable as map keys.
type Key [Size]byte

// ErrInvalidKey indicates a malformed encoded key.
var ErrInvalidKey = errors.New("invalid identity key")

// FromBytes builds a Key from raw bytes.
func FromBytes(b []byte) (Key, error) {
	if len(b) != Size {
		return Key{}, ErrInvalidKey
	}
	var k Key
	copy(k[:], b)
	return k, nil
}

// Parse decodes a Key from its hex representation.
func Parse(s string) (Key, error) {
	s = strings.TrimSpace(s)
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, ErrInvalidKey
	}
	return FromBytes(raw)
}

// Hex returns the full hex encoding of k.
func Hex(k Key) string {
	return hex.EncodeToString(k[:])
}

// Short returns a shortened hex form for logs and CLI output.
func Short(k Key) string {
	return hex.EncodeToString(k[:8]) + "..."
}

// Equal reports whether two keys are identical.
func Equal(a, b Key) bool {
	return a == b
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}

// String implements fmt.Stringer with the full hex encoding.
func (k Key) String() string {
	return Hex(k)
}

// MarshalText encodes k as hex, so JSON and map keys use the hex form.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(Hex(k)), nil
}

// UnmarshalText decodes k from hex.
func (k *Key) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
