// Package ed25519 provides the keypair backing a caller identity.
package ed25519

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

// Keypair is an Ed25519 signing keypair whose public key is the caller's
// identity.Key.
type Keypair struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// Generate creates a new random keypair.
func Generate() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Keypair{private: priv, public: pub}, nil
}

// FromSeed creates a keypair from a 32-byte seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.New("invalid seed length")
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub, _ := priv.Public().(ed25519.PublicKey)
	return &Keypair{private: priv, public: pub}, nil
}

// Seed returns the 32-byte seed for this keypair.
func (k *Keypair) Seed() []byte {
	return k.private.Seed()
}

// Key returns the identity key for this keypair.
func (k *Keypair) Key() identity.Key {
	var out identity.Key
	copy(out[:], k.public)
	return out
}

// Sign signs a payload.
func (k *Keypair) Sign(payload []byte) []byte {
	return ed25519.Sign(k.private, payload)
}

// Verify checks a signature over payload against the given identity key.
func Verify(key identity.Key, payload, sig []byte) bool {
	return ed25519.Verify(key[:], payload, sig)
}
