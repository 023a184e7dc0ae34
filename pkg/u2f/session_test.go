package u2f

import (
	"errors"
	"strings"
	"testing"
)

func TestSetChallengeRejectsWrongLength(t *testing.T) {
	c := NewCtx()
	if err := c.SetChallenge(strings.Repeat("A", 42)); !errors.Is(err, ErrChallenge) {
		t.Fatalf("expected ErrChallenge, got %v", err)
	}
	if c.Challenge() != "" {
		t.Fatalf("challenge should be unchanged after a rejected set, got %q", c.Challenge())
	}
}

func TestSetChallengeAcceptsCorrectLength(t *testing.T) {
	c := NewCtx()
	challenge := strings.Repeat("A", ChallengeB64ULen)
	if err := c.SetChallenge(challenge); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Challenge() != challenge {
		t.Fatalf("challenge = %q, want %q", c.Challenge(), challenge)
	}
}

func TestEnsureChallengeGeneratesOnce(t *testing.T) {
	c := NewCtx()
	if err := c.EnsureChallenge(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Challenge()) != ChallengeB64ULen {
		t.Fatalf("challenge length = %d, want %d", len(c.Challenge()), ChallengeB64ULen)
	}
	raw, err := WebSafeB64Decode(c.Challenge())
	if err != nil {
		t.Fatalf("challenge is not valid base64url: %v", err)
	}
	if len(raw) != ChallengeRawLen {
		t.Fatalf("decoded challenge length = %d, want %d", len(raw), ChallengeRawLen)
	}

	first := c.Challenge()
	if err := c.EnsureChallenge(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Challenge() != first {
		t.Fatalf("EnsureChallenge must be idempotent once a challenge exists")
	}
}

func TestDoneResetsSession(t *testing.T) {
	c := NewCtx()
	if err := c.SetAppID("https://example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.SetOrigin("https://example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.EnsureChallenge(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.Done()

	if c.AppID() != "" || c.Origin() != "" || c.Challenge() != "" || c.KeyHandle() != nil {
		t.Fatalf("Done() must clear all session state")
	}
}

func TestSetPublicKeyRejectsWrongLength(t *testing.T) {
	c := NewCtx()
	if err := c.SetPublicKey(make([]byte, 64)); !errors.Is(err, ErrCrypto) {
		t.Fatalf("expected ErrCrypto, got %v", err)
	}
}
