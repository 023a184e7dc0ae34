package u2f

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/openu2f/u2fserver/internal/idnafold"
)

// VerifyAuthentication checks a U2F authentication response against
// session c and, on success, returns the presence flag and counter the
// device reported.
//
// c must already have Challenge, Origin, AppID, and UserKey set (the
// latter two via SetAppID/SetPublicKey from a prior registration).
//
// Note the signed-bytes layout here is deliberately asymmetric with
// VerifyRegistration's: no leading domain-separator byte, and no key
// handle or public key folded in. Mirroring the registration layout here
// would silently reject every genuine authentication.
func VerifyAuthentication(c *Ctx, response []byte) (*AuthenticationResult, error) {
	if c == nil || response == nil {
		return nil, ErrMemory
	}
	if c.userKey == nil {
		return nil, fmt.Errorf("%w: session has no registered user key", ErrMemory)
	}

	var raw signResponseRaw
	if err := json.Unmarshal(response, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSON, err)
	}

	sigDataBin, err := decodeWireB64(raw.SignatureData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	fields, err := parseSignatureData(sigDataBin)
	if err != nil {
		return nil, err
	}

	clientDataBin, err := decodeWireB64(raw.ClientData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	var cdata clientData
	if err := json.Unmarshal(clientDataBin, &cdata); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSON, err)
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
	signBuf.Write(applicationParameter[:])
	signBuf.WriteByte(fields.userPresence)
	signBuf.Write(fields.counterRaw[:])
	signBuf.Write(challengeParameter[:])
	signedHash := sha256.Sum256(signBuf.Bytes())

	if debug {
		log.Debugf("authentication signed-bytes hash: %x", signedHash)
	}

	if err := verifyECDSASignature(c.userKey, signedHash[:], fields.signatureDER); err != nil {
		return nil, err
	}

	return &AuthenticationResult{
		Verified:     true,
		Counter:      binary.BigEndian.Uint32(fields.counterRaw[:]),
		UserPresence: fields.userPresence,
	}, nil
}
