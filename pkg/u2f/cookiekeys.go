package u2f

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveCookieKeys stretches masterSecret into the hash and block keys a
// gorilla/securecookie instance needs via HKDF-SHA256, so one secret (see
// NewRandomMasterSecret) yields both keys rather than the two keys being
// drawn independently. A caller
// that persists the master secret (instead of discarding it, as the demo
// server does) gets the same pair of cookie keys back across restarts.
func DeriveCookieKeys(masterSecret []byte) (hashKey, blockKey [32]byte, err error) {
	if len(masterSecret) == 0 {
		return hashKey, blockKey, fmt.Errorf("%w: master secret must not be empty", ErrMemory)
	}
	kdf := hkdf.New(sha256.New, masterSecret, nil, []byte("u2fserver cookie keys"))
	if _, err := io.ReadFull(kdf, hashKey[:]); err != nil {
		return hashKey, blockKey, fmt.Errorf("%w: failed to derive hash key: %v", ErrCrypto, err)
	}
	if _, err := io.ReadFull(kdf, blockKey[:]); err != nil {
		return hashKey, blockKey, fmt.Errorf("%w: failed to derive block key: %v", ErrCrypto, err)
	}
	return hashKey, blockKey, nil
}

// NewRandomMasterSecret draws a fresh 32-byte master secret suitable for
// DeriveCookieKeys.
func NewRandomMasterSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMemory, err)
	}
	return secret, nil
}
