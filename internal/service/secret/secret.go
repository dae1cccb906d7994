// Package secret digests and verifies question answers. Plaintext answers
// are never stored; only the hex digest of the normalized answer is.
package secret

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Digest returns the lowercase hex SHA-256 of the normalized secret. The
// algorithm and encoding are frozen: stored digests must stay verifiable for
// the lifetime of the data.
func Digest(secret string) string {
	shaHash := sha256.New()
	shaHash.Write([]byte(normalize(secret)))
	return hex.EncodeToString(shaHash.Sum(nil))
}

// Verify recomputes the digest of the candidate and compares in constant
// time. A missing stored digest fails closed: a message that never had an
// answer set cannot be unlocked by answering.
func Verify(secret string, digest string) bool {
	if digest == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Digest(secret)), []byte(digest)) == 1
}

type verifier struct{}

// NewVerifier wraps the package functions for callers that take the
// verifier as a collaborator.
func NewVerifier() *verifier {
	return &verifier{}
}

func (*verifier) Verify(secret string, digest string) bool {
	return Verify(secret, digest)
}

// normalize must match what was applied when the digest was created,
// otherwise legitimate answers get rejected.
func normalize(secret string) string {
	return strings.ToLower(strings.TrimSpace(secret))
}
