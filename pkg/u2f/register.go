package u2f

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/openu2f/u2fserver/internal/idnafold"
)

// VerifyRegistration checks a U2F registration response against session c
// and, on success, returns the newly established credential.
//
// c must already have AppID and Origin set; its challenge is generated
// lazily via EnsureChallenge if not already present. validate, if non-nil,
// is consulted right after the attestation certificate is parsed and
// before the signature is checked — the hook this core exposes in place of
// a built-in certificate-chain trust policy. A nil validate accepts every
// attestation certificate.
func VerifyRegistration(c *Ctx, response []byte, validate AttestationValidator) (*RegistrationResult, error) {
	if c == nil || response == nil {
		return nil, ErrMemory
	}
	if validate == nil {
		validate = AllowAllAttestations
	}

	var raw registrationResponseRaw
	if err := json.Unmarshal(response, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSON, err)
	}

	regDataBin, err := decodeWireB64(raw.RegistrationData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	fields, err := parseRegistrationData(regDataBin)
	if err != nil {
		return nil, err
	}

	attestationCert, attestationKey, err := decodeAttestationCertificate(fields.certDER)
	if err != nil {
		return nil, err
	}

	if err := validate(attestationCert); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	clientDataBin, err := decodeWireB64(raw.ClientData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	var cdata clientData
	if err := json.Unmarshal(clientDataBin, &cdata); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSON, err)
	}

	if err := c.EnsureChallenge(); err != nil {
		return nil, err
	}

	if cdata.Challenge != c.challenge {
		return nil, fmt.Errorf("%w: clientData challenge does not match session", ErrChallenge)
	}
	if cdata.Origin != c.origin {
		return nil, fmt.Errorf("%w: clientData origin does not match session", ErrOrigin)
	}

	appIDASCII, err := idnafold.ToASCII(c.appID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	applicationParameter := sha256.Sum256([]byte(appIDASCII))
	challengeParameter := sha256.Sum256(clientDataBin)

	var signBuf bytes.Buffer
	signBuf.WriteByte(0x00)
	signBuf.Write(applicationParameter[:])
	signBuf.Write(challengeParameter[:])
	signBuf.Write(fields.keyHandle)
	signBuf.Write(fields.userPublicKeyRaw)
	signedHash := sha256.Sum256(signBuf.Bytes())

	if debug {
		log.Debugf("registration signed-bytes hash: %x", signedHash)
	}

	if err := verifyECDSASignature(attestationKey, signedHash[:], fields.signatureDER); err != nil {
		return nil, err
	}

	userKey, err := decodeUserKey(fields.userPublicKeyRaw)
	if err != nil {
		return nil, err
	}

	return &RegistrationResult{
		KeyHandle:                 WebSafeB64Encode(fields.keyHandle),
		PublicKey:                 userKey,
		PublicKeyRaw:               append([]byte(nil), fields.userPublicKeyRaw...),
		AttestationCertificatePEM: pemEncodeCertificate(fields.certDER),
	}, nil
}
