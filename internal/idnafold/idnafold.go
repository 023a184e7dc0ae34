// Package idnafold converts the relying party's AppID to ASCII before it is
// hashed into the U2F application parameter. Both verifiers in pkg/u2f
// call it on the session's AppID; the clientData origin is not passed
// through it.
package idnafold

import "golang.org/x/net/idna"

// ToASCII passes origin whole to idna.ToASCII, which converts each
// dot-separated label holding non-ASCII characters to Punycode. A
// URL-shaped string is not split into scheme, host and port first.
// ASCII-only input passes through unchanged.
func ToASCII(origin string) (string, error) {
	return idna.ToASCII(origin)
}
