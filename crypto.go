package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/goliatone/go-errors"
)

// HashToken returns the hex encoded sha256 digest of a raw token. Stores
// only ever persist this digest, never the token itself.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GenerateRandomToken returns a hex encoded string of n random bytes.
func GenerateRandomToken(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to read random bytes")
	}
	return hex.EncodeToString(buf), nil
}

// TimingSafeEqual compares two strings in constant time. Unequal lengths
// short-circuit false; the length itself is not a secret here since both
// sides are fixed-width digests.
func TimingSafeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
