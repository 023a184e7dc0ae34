package u2f

import (
	"encoding/asn1"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// registrationDataFields is the decoded registration-data TLV blob: a
// 1-byte reserved marker, the raw 65-byte user public key, a
// length-prefixed key handle, a DER X.509 attestation certificate, and a
// trailing DER ECDSA signature.
type registrationDataFields struct {
	userPublicKeyRaw []byte
	keyHandle        []byte
	certDER          []byte
	signatureDER     []byte
}

// parseRegistrationData decodes the raw (already Base64-decoded)
// registration-data payload.
//
//	offset  size    field
//	0       1       reserved, MUST equal 0x05
//	1       65      user public key (0x04 || X(32) || Y(32))
//	66      1       key-handle length L
//	67      L       key handle
//	67+L    V       attestation certificate (DER X.509, self-delimited)
//	67+L+V  S       signature (DER ECDSA, to end of buffer)
func parseRegistrationData(data []byte) (*registrationDataFields, error) {
	const minLen = 1 + PublicKeyRawLen + 1 + 64
	if len(data) <= minLen {
		if debug {
			log.Debugf("registration-data too short: %d bytes", len(data))
		}
		return nil, fmt.Errorf("%w: registration data too short", ErrFormat)
	}

	if data[0] != 0x05 {
		if debug {
			log.Debugf("registration-data reserved byte mismatch: %#x", data[0])
		}
		return nil, fmt.Errorf("%w: reserved byte mismatch", ErrFormat)
	}

	offset := 1
	userPublicKeyRaw := append([]byte(nil), data[offset:offset+PublicKeyRawLen]...)
	offset += PublicKeyRawLen

	if offset >= len(data) {
		return nil, fmt.Errorf("%w: missing key handle length", ErrFormat)
	}
	keyHandleLen := int(data[offset])
	offset++

	if len(data) < offset+keyHandleLen {
		return nil, fmt.Errorf("%w: key handle overruns buffer", ErrFormat)
	}
	keyHandle := append([]byte(nil), data[offset:offset+keyHandleLen]...)
	offset += keyHandleLen

	// The certificate must open with a DER SEQUENCE tag and a two-byte
	// long-form length (0x30 0x82 hi lo); any other prefix is rejected.
	// asn1.Unmarshal into a RawValue then reads that length prefix and hands
	// back everything after the certificate, so the certificate is delimited
	// by the standard library's own DER length walk instead of hand-rolled
	// byte arithmetic.
	if len(data) < offset+4 || data[offset] != 0x30 || data[offset+1] != 0x82 {
		return nil, fmt.Errorf("%w: attestation certificate is not a SEQUENCE with a two-byte length", ErrFormat)
	}
	var cert asn1.RawValue
	remainder, err := asn1.Unmarshal(data[offset:], &cert)
	if err != nil {
		if debug {
			log.Debugf("failed to delimit attestation certificate: %v", err)
		}
		return nil, fmt.Errorf("%w: malformed attestation certificate", ErrFormat)
	}
	certDER := cert.FullBytes

	var sig asn1.RawValue
	rest, err := asn1.Unmarshal(remainder, &sig)
	if err != nil {
		if debug {
			log.Debugf("failed to delimit signature: %v", err)
		}
		return nil, fmt.Errorf("%w: malformed signature", ErrFormat)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes after signature", ErrFormat)
	}
	signatureDER := sig.FullBytes

	return &registrationDataFields{
		userPublicKeyRaw: userPublicKeyRaw,
		keyHandle:        keyHandle,
		certDER:          certDER,
		signatureDER:     signatureDER,
	}, nil
}

// signatureDataFields is the decoded signature-data TLV blob from an
// authentication response.
type signatureDataFields struct {
	userPresence byte
	counterRaw   [CounterLen]byte
	signatureDER []byte
}

// parseSignatureData decodes the raw (already Base64-decoded)
// signature-data payload.
//
//	offset  size    field
//	0       1       user-presence byte (low bit must be 1)
//	1       4       counter, big-endian
//	5       S       signature (DER ECDSA)
func parseSignatureData(data []byte) (*signatureDataFields, error) {
	if len(data) <= 1+CounterLen {
		if debug {
			log.Debugf("signature-data too short: %d bytes", len(data))
		}
		return nil, fmt.Errorf("%w: signature data too short", ErrFormat)
	}

	presence := data[0]
	if presence&0x01 == 0 {
		if debug {
			log.Debugf("user presence byte mismatch: %#x", presence)
		}
		return nil, fmt.Errorf("%w: user presence bit not set", ErrFormat)
	}

	fields := &signatureDataFields{userPresence: presence}
	copy(fields.counterRaw[:], data[1:1+CounterLen])
	fields.signatureDER = append([]byte(nil), data[1+CounterLen:]...)
	if len(fields.signatureDER) == 0 {
		return nil, fmt.Errorf("%w: missing signature", ErrFormat)
	}

	return fields, nil
}
