package archive

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"io"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

const nonceSize = 24

// Seal encrypts plaintext so that only the holder of the recipient's
// Ed25519 seed can open it. The recipient key is converted to
// Curve25519 and combined with an ephemeral X25519 key; the shared
// secret keys a secretbox. Output layout:
// ephemeral public key (32) || nonce (24) || box.
func Seal(plaintext []byte, recipient identity.Key) ([]byte, error) {
	recipCurve, err := ed25519PublicToCurve25519(recipient)
	if err != nil {
		return nil, err
	}

	ephPriv := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, ephPriv); err != nil {
		return nil, err
	}
	ephPub, err := curve25519.X25519(ephPriv, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}

	shared, err := curve25519.X25519(ephPriv, recipCurve)
	if err != nil {
		return nil, err
	}
	key := sha256.Sum256(shared)

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	out := make([]byte, 0, 32+nonceSize+len(plaintext)+secretbox.Overhead)
	out = append(out, ephPub...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, &key), nil
}

// Open decrypts a sealed payload with the recipient's Ed25519 seed.
func Open(sealed, seed []byte) ([]byte, error) {
	if len(sealed) < 32+nonceSize+secretbox.Overhead {
		return nil, errors.New("sealed payload too short")
	}

	priv := ed25519SeedToCurve25519Private(seed)
	ephPub := sealed[:32]

	shared, err := curve25519.X25519(priv, ephPub)
	if err != nil {
		return nil, err
	}
	key := sha256.Sum256(shared)

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[32:32+nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[32+nonceSize:], &nonce, &key)
	if !ok {
		return nil, errors.New("decryption failed")
	}
	return plaintext, nil
}

// ed25519SeedToCurve25519Private derives a Curve25519 private key from an Ed25519 seed.
func ed25519SeedToCurve25519Private(seed []byte) []byte {
	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64
	return h[:32]
}

// ed25519PublicToCurve25519 converts an Ed25519 public key to a Curve25519 public key.
func ed25519PublicToCurve25519(pub identity.Key) ([]byte, error) {
	p, err := new(edwards25519.Point).SetBytes(pub[:])
	if err != nil {
		return nil, err
	}
	return p.BytesMontgomery(), nil
}
