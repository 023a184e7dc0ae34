package u2f

import (
	"bytes"
	"errors"
	"testing"
)

func buildRegistrationData(t *testing.T, d *fakeDevice) []byte {
	t.Helper()
	userPubRaw := dumpUserKey(&d.userKey.PublicKey)

	var out []byte
	out = append(out, 0x05)
	out = append(out, userPubRaw...)
	out = append(out, byte(len(d.keyHandle)))
	out = append(out, d.keyHandle...)
	out = append(out, d.attestationCert...)
	// A DER SEQUENCE is a valid stand-in for a signature in these
	// parser-only tests; parser.go only needs to self-delimit it.
	fakeSig := []byte{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x02}
	out = append(out, fakeSig...)
	return out
}

func TestParseRegistrationDataRoundTrip(t *testing.T) {
	d, err := newFakeDevice()
	if err != nil {
		t.Fatalf("newFakeDevice: %v", err)
	}
	data := buildRegistrationData(t, d)

	fields, err := parseRegistrationData(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	userPubRaw := dumpUserKey(&d.userKey.PublicKey)
	if !bytes.Equal(fields.userPublicKeyRaw, userPubRaw) {
		t.Fatalf("user public key mismatch")
	}
	if !bytes.Equal(fields.keyHandle, d.keyHandle) {
		t.Fatalf("key handle mismatch")
	}
	if !bytes.Equal(fields.certDER, d.attestationCert) {
		t.Fatalf("certificate mismatch: got %d bytes, want %d bytes", len(fields.certDER), len(d.attestationCert))
	}
}

func TestParseRegistrationDataRejectsBadReservedByte(t *testing.T) {
	d, err := newFakeDevice()
	if err != nil {
		t.Fatalf("newFakeDevice: %v", err)
	}
	data := buildRegistrationData(t, d)
	data[0] = 0x04

	if _, err := parseRegistrationData(data); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestParseRegistrationDataRejectsShortBuffer(t *testing.T) {
	if _, err := parseRegistrationData([]byte{0x05, 0x01, 0x02}); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestParseSignatureDataRoundTrip(t *testing.T) {
	sig := []byte{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x02}
	data := append([]byte{0x01, 0x00, 0x00, 0x00, 0x2a}, sig...)

	fields, err := parseSignatureData(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fields.userPresence != 0x01 {
		t.Fatalf("userPresence = %#x, want 0x01", fields.userPresence)
	}
	wantCounter := [4]byte{0x00, 0x00, 0x00, 0x2a}
	if fields.counterRaw != wantCounter {
		t.Fatalf("counterRaw = %v, want %v", fields.counterRaw, wantCounter)
	}
	if !bytes.Equal(fields.signatureDER, sig) {
		t.Fatalf("signature mismatch")
	}
}

func TestParseSignatureDataRejectsMissingPresenceBit(t *testing.T) {
	sig := []byte{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x02}
	data := append([]byte{0x00, 0x00, 0x00, 0x00, 0x2a}, sig...)

	if _, err := parseSignatureData(data); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestParseSignatureDataRejectsShortBuffer(t *testing.T) {
	if _, err := parseSignatureData([]byte{0x01, 0x00}); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}
