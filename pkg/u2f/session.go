package u2f

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
)

// Ctx holds the per-flow U2F protocol state: the challenge handed to the
// browser, the relying party's app id and expected origin, and — once a
// credential exists — the registered key handle and user public key.
//
// A Ctx is a linear state machine (empty -> partial -> ready-for-challenge
// -> ready-for-auth -> challenged -> done) and is not safe for concurrent
// mutation: each setter replaces the prior value outright. Independent Ctx
// values may be driven from different goroutines freely.
type Ctx struct {
	challenge string
	appID     string
	origin    string
	keyHandle []byte
	userKey   *ecdsa.PublicKey
}

// NewCtx returns a new, empty session context.
func NewCtx() *Ctx {
	return &Ctx{}
}

// Done releases everything the session owns. The zero value that results
// is safe to reuse as if freshly created by NewCtx.
func (c *Ctx) Done() {
	c.challenge = ""
	c.appID = ""
	c.origin = ""
	c.keyHandle = nil
	c.userKey = nil
}

// SetChallenge installs an already-encoded challenge, replacing any prior
// value. challenge must be exactly ChallengeB64ULen characters.
func (c *Ctx) SetChallenge(challenge string) error {
	if len(challenge) != ChallengeB64ULen {
		return fmt.Errorf("%w: challenge must be %d characters, got %d", ErrChallenge, ChallengeB64ULen, len(challenge))
	}
	c.challenge = challenge
	return nil
}

// SetKeyHandle installs the key handle of a previously registered
// credential, replacing any prior value.
func (c *Ctx) SetKeyHandle(keyHandle []byte) error {
	if keyHandle == nil {
		return fmt.Errorf("%w: key handle must not be nil", ErrMemory)
	}
	c.keyHandle = append([]byte(nil), keyHandle...)
	return nil
}

// SetOrigin installs the origin expected to be echoed by the browser's
// clientData, replacing any prior value.
func (c *Ctx) SetOrigin(origin string) error {
	if origin == "" {
		return fmt.Errorf("%w: origin must not be empty", ErrMemory)
	}
	c.origin = origin
	return nil
}

// SetAppID installs the relying party's U2F AppID, replacing any prior
// value.
func (c *Ctx) SetAppID(appID string) error {
	if appID == "" {
		return fmt.Errorf("%w: app id must not be empty", ErrMemory)
	}
	c.appID = appID
	return nil
}

// SetPublicKey decodes and installs a previously-registered user public
// key (raw 65-byte uncompressed point), replacing any prior value.
func (c *Ctx) SetPublicKey(raw []byte) error {
	key, err := decodeUserKey(raw)
	if err != nil {
		return err
	}
	c.userKey = key
	return nil
}

// SetPublicKeyParsed installs an already-decoded user public key,
// replacing any prior value. Useful when the key comes from storage rather
// than the wire.
func (c *Ctx) SetPublicKeyParsed(key *ecdsa.PublicKey) error {
	if key == nil {
		return fmt.Errorf("%w: public key must not be nil", ErrMemory)
	}
	c.userKey = key
	return nil
}

// AppID returns the session's configured app id.
func (c *Ctx) AppID() string { return c.appID }

// Origin returns the session's configured origin.
func (c *Ctx) Origin() string { return c.origin }

// Challenge returns the session's current challenge, or "" if none has
// been set or generated yet.
func (c *Ctx) Challenge() string { return c.challenge }

// KeyHandle returns the session's configured key handle.
func (c *Ctx) KeyHandle() []byte { return c.keyHandle }

// EnsureChallenge lazily generates a challenge if the session doesn't
// already have one: ChallengeRawLen bytes from a CSPRNG, Base64URL-encoded
// without padding. Idempotent after the first call.
func (c *Ctx) EnsureChallenge() error {
	if c.challenge != "" {
		return nil
	}
	buf := make([]byte, ChallengeRawLen)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("%w: failed to draw random challenge: %v", ErrMemory, err)
	}
	c.challenge = WebSafeB64Encode(buf)
	return nil
}
