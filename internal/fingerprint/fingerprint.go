// Package fingerprint derives the anonymous listener identifier used to
// key ratings. There are no accounts; a listener is whoever shows up with
// the same network address and User-Agent. Clients sharing both (NAT plus
// identical browsers) collapse into one listener, which is an accepted
// limitation of the scheme.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Derive hashes a client network address and identity string into a
// stable opaque identifier. Same inputs always produce the same 64-char
// hex digest; the inputs are not recoverable from it.
func Derive(addr, userAgent string) string {
	sum := sha256.Sum256([]byte(addr + ":" + userAgent))
	return hex.EncodeToString(sum[:])
}
