package u2f

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
)

// decodeUserKey decodes a raw uncompressed P-256 point (0x04 || X || Y)
// into an *ecdsa.PublicKey.
func decodeUserKey(raw []byte) (*ecdsa.PublicKey, error) {
	if len(raw) != PublicKeyRawLen {
		return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrCrypto, PublicKeyRawLen, len(raw))
	}
	if raw[0] != 0x04 {
		return nil, fmt.Errorf("%w: public key is not an uncompressed point", ErrCrypto)
	}
	x := new(big.Int).SetBytes(raw[1:33])
	y := new(big.Int).SetBytes(raw[33:65])
	curve := elliptic.P256()
	if !curve.IsOnCurve(x, y) {
		return nil, fmt.Errorf("%w: public key is not a point on P-256", ErrCrypto)
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// dumpUserKey re-encodes an *ecdsa.PublicKey as a raw uncompressed P-256
// point, the inverse of decodeUserKey.
func dumpUserKey(key *ecdsa.PublicKey) []byte {
	raw := make([]byte, PublicKeyRawLen)
	raw[0] = 0x04
	key.X.FillBytes(raw[1:33])
	key.Y.FillBytes(raw[33:65])
	return raw
}

// decodeAttestationCertificate parses the DER attestation certificate
// extracted from a registration-data blob and returns both the parsed
// certificate and its embedded EC public key.
func decodeAttestationCertificate(der []byte) (*x509.Certificate, *ecdsa.PublicKey, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to parse attestation certificate: %v", ErrCrypto, err)
	}
	key, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("%w: attestation certificate does not hold an EC public key", ErrCrypto)
	}
	return cert, key, nil
}

// pemEncodeCertificate dumps a DER certificate as PEM text.
func pemEncodeCertificate(der []byte) string {
	block := &pem.Block{Type: "CERTIFICATE", Bytes: der}
	return string(pem.EncodeToMemory(block))
}

// verifyECDSASignature checks a DER-encoded ECDSA signature over digest
// using key. DER parsing and curve-point arithmetic are the stdlib's.
func verifyECDSASignature(key *ecdsa.PublicKey, digest, signatureDER []byte) error {
	if !ecdsa.VerifyASN1(key, digest, signatureDER) {
		return fmt.Errorf("%w: ecdsa signature verification failed", ErrCrypto)
	}
	return nil
}
