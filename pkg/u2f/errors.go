package u2f

import "errors"

// Sentinel errors returned by the session and verifier operations. Callers
// should use errors.Is against these rather than comparing error strings.
var (
	// ErrMemory mirrors the C core's U2FS_MEMORY_ERROR: a required input
	// was nil/empty, or an allocation-shaped operation failed.
	ErrMemory = errors.New("u2f: memory error")

	// ErrJSON covers JSON parse failure, a missing field, or a field with
	// the wrong type.
	ErrJSON = errors.New("u2f: json error")

	// ErrBase64 is reserved for codec failures that aren't masked into a
	// more specific error by the caller.
	ErrBase64 = errors.New("u2f: base64 error")

	// ErrFormat covers binary layout rejections: reserved byte mismatch,
	// short buffers, bad user-presence bit, malformed DER.
	ErrFormat = errors.New("u2f: format error")

	// ErrChallenge covers a wrong-length challenge passed to SetChallenge,
	// or a challenge echoed by the client that doesn't match the session.
	ErrChallenge = errors.New("u2f: challenge error")

	// ErrOrigin covers an origin echoed by the client that doesn't match
	// the session.
	ErrOrigin = errors.New("u2f: origin error")

	// ErrCrypto covers ECDSA verification failure, key decode failure, or
	// certificate decode failure.
	ErrCrypto = errors.New("u2f: crypto error")
)
