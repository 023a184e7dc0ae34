package u2f

import "crypto/x509"

// AttestationValidator judges whether a device attestation certificate
// should be trusted. VerifyRegistration calls it (when set) right after
// the certificate is parsed and before the signature is checked, mirroring
// where the original implementation left a certificate-validation TODO.
//
// Root-of-trust policy (which vendor roots to pin, metadata-service
// lookups, revocation) is deliberately left to the caller; this core only
// provides the hook.
type AttestationValidator func(cert *x509.Certificate) error

// AllowAllAttestations is the default AttestationValidator: it accepts
// every attestation certificate without inspection, matching the behavior
// of a core with no certificate-chain policy wired in.
func AllowAllAttestations(*x509.Certificate) error {
	return nil
}
