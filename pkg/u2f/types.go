package u2f

import (
	"crypto/ecdsa"
	"net/http"
)

// U2fVersion is the only protocol version this core speaks.
const U2fVersion = "U2F_V2"

// RegistrationChallenge is the JSON challenge handed to the browser to
// start a registration ceremony. Field names and their order on the wire
// are protocol-visible.
type RegistrationChallenge struct {
	Challenge string `json:"challenge"`
	Version   string `json:"version"`
	AppID     string `json:"appId"`
}

// AuthenticationChallenge is the JSON challenge handed to the browser to
// start an authentication ceremony.
type AuthenticationChallenge struct {
	KeyHandle string `json:"keyHandle"`
	Version   string `json:"version"`
	Challenge string `json:"challenge"`
	AppID     string `json:"appId"`
}

// registrationResponseRaw is the client->server registration response
// envelope, before the nested payloads are decoded.
type registrationResponseRaw struct {
	RegistrationData string `json:"registrationData"`
	ClientData       string `json:"clientData"`
}

// clientData is the decoded JSON embedded (Base64-encoded) in both the
// registration and the authentication response. Only Challenge and Origin
// are load-bearing; other fields the browser sends are ignored.
type clientData struct {
	Typ       string `json:"typ"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// signResponseRaw is the client->server authentication response envelope.
type signResponseRaw struct {
	SignatureData string `json:"signatureData"`
	ClientData    string `json:"clientData"`
	KeyHandle     string `json:"keyHandle"`
}

// RegistrationResult is returned by VerifyRegistration on success.
type RegistrationResult struct {
	// KeyHandle is the Base64URL-encoded newly issued credential id.
	KeyHandle string
	// PublicKey is the decoded user EC public key.
	PublicKey *ecdsa.PublicKey
	// PublicKeyRaw is the raw 65-byte uncompressed point, 0x04 || X || Y.
	PublicKeyRaw []byte
	// AttestationCertificatePEM is the device attestation X.509 in PEM text.
	AttestationCertificatePEM string
}

// AuthenticationResult is returned by VerifyAuthentication on success.
type AuthenticationResult struct {
	// Verified is true on every result returned by a successful
	// VerifyAuthentication call.
	Verified bool
	// Counter is the big-endian wire counter, decoded to a host uint32.
	Counter uint32
	// UserPresence is the raw presence byte; the low bit is the "user
	// touched the device" flag and is always 1 on a successful result.
	UserPresence byte
}

// AuthenticationRequest is an application-level payload a
// UserAuthenticationCallback implementation may choose to decode from the
// request body to authenticate a user before a U2F ceremony begins. It is
// unrelated to the U2F protocol proper and not referenced by this package.
type AuthenticationRequest struct {
	UserId               string `json:"user_id"`
	AuthenticationSecret string `json:"authentication_secret"`
}

// AuthenticationCallback is invoked by the HTTP API with the outcome of an
// authentication ceremony, so the caller can finish the HTTP response (set
// cookies, pick a status code, etc). AuthenticateComplete invokes it with
// the verification outcome; AuthenticateBegin also invokes it, with
// U2F_STATUS_ERROR, when a ceremony cannot be started for the identifier.
type AuthenticationCallback func(authStatus int, writer http.ResponseWriter, request *http.Request, userIdentifier string)
