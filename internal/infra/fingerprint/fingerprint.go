// Package fingerprint derives stable pseudonymous identifiers from NRICs
// so stored quote and payment records never hold the raw value.
package fingerprint

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprinter computes keyed BLAKE2b-256 digests.
type Fingerprinter struct {
	key []byte
}

// New creates a Fingerprinter. Keys longer than 64 bytes are hashed down first.
func New(key string) *Fingerprinter {
	k := []byte(key)
	if len(k) > blake2b.Size {
		sum := blake2b.Sum512(k)
		k = sum[:]
	}
	return &Fingerprinter{key: k}
}

// Of returns the hex digest of the normalized identifier, or "" for an empty one.
func (f *Fingerprinter) Of(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return ""
	}
	h, err := blake2b.New256(f.key)
	if err != nil {
		// Only reachable with an oversized key, which New rules out.
		panic(err)
	}
	h.Write([]byte(id))
	return hex.EncodeToString(h.Sum(nil))
}
