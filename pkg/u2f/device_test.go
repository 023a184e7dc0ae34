package u2f

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"
)

// fakeDevice stands in for a U2F hardware authenticator in tests: it owns
// an attestation keypair/certificate (used only during registration) and,
// once "registered", a per-credential user keypair (used for subsequent
// authentications).
type fakeDevice struct {
	attestationKey  *ecdsa.PrivateKey
	attestationCert []byte // DER

	userKey   *ecdsa.PrivateKey
	keyHandle []byte
}

func newFakeDevice() (*fakeDevice, error) {
	attestationKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"Fake Authenticator Vendor"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &attestationKey.PublicKey, attestationKey)
	if err != nil {
		return nil, err
	}

	userKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	return &fakeDevice{
		attestationKey:  attestationKey,
		attestationCert: der,
		userKey:         userKey,
		keyHandle:       []byte("fake-key-handle-0123456789"),
	}, nil
}

// register builds a valid registration-data TLV blob and signs it with the
// device's attestation key, following the exact signed-bytes layout
// VerifyRegistration expects.
func (d *fakeDevice) register(appID string, clientDataJSON []byte) ([]byte, error) {
	userPubRaw := dumpUserKey(&d.userKey.PublicKey)

	appParam := sha256.Sum256([]byte(appID))
	clientParam := sha256.Sum256(clientDataJSON)

	signed := []byte{0x00}
	signed = append(signed, appParam[:]...)
	signed = append(signed, clientParam[:]...)
	signed = append(signed, d.keyHandle...)
	signed = append(signed, userPubRaw...)
	digest := sha256.Sum256(signed)

	sig, err := ecdsa.SignASN1(rand.Reader, d.attestationKey, digest[:])
	if err != nil {
		return nil, err
	}

	var out []byte
	out = append(out, 0x05)
	out = append(out, userPubRaw...)
	out = append(out, byte(len(d.keyHandle)))
	out = append(out, d.keyHandle...)
	out = append(out, d.attestationCert...)
	out = append(out, sig...)
	return out, nil
}

// authenticate builds a valid signature-data TLV blob for a subsequent
// authentication ceremony.
func (d *fakeDevice) authenticate(appID string, presence byte, counter uint32, clientDataJSON []byte) ([]byte, error) {
	appParam := sha256.Sum256([]byte(appID))
	clientParam := sha256.Sum256(clientDataJSON)

	counterRaw := []byte{byte(counter >> 24), byte(counter >> 16), byte(counter >> 8), byte(counter)}

	signed := append([]byte{}, appParam[:]...)
	signed = append(signed, presence)
	signed = append(signed, counterRaw...)
	signed = append(signed, clientParam[:]...)
	digest := sha256.Sum256(signed)

	sig, err := ecdsa.SignASN1(rand.Reader, d.userKey, digest[:])
	if err != nil {
		return nil, err
	}

	out := []byte{presence}
	out = append(out, counterRaw...)
	out = append(out, sig...)
	return out, nil
}
