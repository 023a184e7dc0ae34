package u2f

import (
	"encoding/json"
	"errors"
	"testing"
)

func newAuthenticationResponse(t *testing.T, appID, origin, challenge string, presence byte, counter uint32, d *fakeDevice) []byte {
	t.Helper()

	cdata, err := json.Marshal(clientData{
		Typ:       "navigator.id.getAssertion",
		Challenge: challenge,
		Origin:    origin,
	})
	if err != nil {
		t.Fatalf("marshal clientData: %v", err)
	}

	sigData, err := d.authenticate(appID, presence, counter, cdata)
	if err != nil {
		t.Fatalf("device authenticate: %v", err)
	}

	envelope, err := json.Marshal(signResponseRaw{
		SignatureData: WebSafeB64Encode(sigData),
		ClientData:    WebSafeB64Encode(cdata),
		KeyHandle:     WebSafeB64Encode(d.keyHandle),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return envelope
}

func newAuthenticatedSession(t *testing.T, appID, origin string, d *fakeDevice) *Ctx {
	t.Helper()
	c := NewCtx()
	if err := c.SetAppID(appID); err != nil {
		t.Fatalf("SetAppID: %v", err)
	}
	if err := c.SetOrigin(origin); err != nil {
		t.Fatalf("SetOrigin: %v", err)
	}
	if err := c.SetKeyHandle(d.keyHandle); err != nil {
		t.Fatalf("SetKeyHandle: %v", err)
	}
	if err := c.SetPublicKeyParsed(&d.userKey.PublicKey); err != nil {
		t.Fatalf("SetPublicKeyParsed: %v", err)
	}
	if err := c.EnsureChallenge(); err != nil {
		t.Fatalf("EnsureChallenge: %v", err)
	}
	return c
}

func TestVerifyAuthenticationSuccess(t *testing.T) {
	d, err := newFakeDevice()
	if err != nil {
		t.Fatalf("newFakeDevice: %v", err)
	}

	const appID = "https://example.com"
	c := newAuthenticatedSession(t, appID, appID, d)
	response := newAuthenticationResponse(t, appID, appID, c.Challenge(), 0x01, 42, d)

	result, err := VerifyAuthentication(c, response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Verified {
		t.Fatalf("expected Verified = true")
	}
	if result.Counter != 42 {
		t.Fatalf("counter = %d, want 42", result.Counter)
	}
	if result.UserPresence != 0x01 {
		t.Fatalf("userPresence = %#x, want 0x01", result.UserPresence)
	}
}

func TestVerifyAuthenticationRequiresRegisteredKey(t *testing.T) {
	d, err := newFakeDevice()
	if err != nil {
		t.Fatalf("newFakeDevice: %v", err)
	}

	const appID = "https://example.com"
	c := NewCtx()
	if err := c.SetAppID(appID); err != nil {
		t.Fatalf("SetAppID: %v", err)
	}
	if err := c.SetOrigin(appID); err != nil {
		t.Fatalf("SetOrigin: %v", err)
	}
	if err := c.EnsureChallenge(); err != nil {
		t.Fatalf("EnsureChallenge: %v", err)
	}
	response := newAuthenticationResponse(t, appID, appID, c.Challenge(), 0x01, 1, d)

	if _, err := VerifyAuthentication(c, response); !errors.Is(err, ErrMemory) {
		t.Fatalf("expected ErrMemory, got %v", err)
	}
}

func TestVerifyAuthenticationRejectsChallengeMismatch(t *testing.T) {
	d, err := newFakeDevice()
	if err != nil {
		t.Fatalf("newFakeDevice: %v", err)
	}

	const appID = "https://example.com"
	c := newAuthenticatedSession(t, appID, appID, d)
	wrongChallenge := WebSafeB64Encode(make([]byte, ChallengeRawLen))
	response := newAuthenticationResponse(t, appID, appID, wrongChallenge, 0x01, 1, d)

	if _, err := VerifyAuthentication(c, response); !errors.Is(err, ErrChallenge) {
		t.Fatalf("expected ErrChallenge, got %v", err)
	}
}

func TestVerifyAuthenticationRejectsForeignKey(t *testing.T) {
	d, err := newFakeDevice()
	if err != nil {
		t.Fatalf("newFakeDevice: %v", err)
	}
	impostor, err := newFakeDevice()
	if err != nil {
		t.Fatalf("newFakeDevice: %v", err)
	}

	const appID = "https://example.com"
	c := newAuthenticatedSession(t, appID, appID, d)
	// impostor signs with a different private key than the one registered
	// in the session; the public key on file must not verify it.
	response := newAuthenticationResponse(t, appID, appID, c.Challenge(), 0x01, 1, impostor)

	if _, err := VerifyAuthentication(c, response); !errors.Is(err, ErrCrypto) {
		t.Fatalf("expected ErrCrypto, got %v", err)
	}
}
