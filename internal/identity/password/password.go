/*
Adaptive password hashing for MQTT identity credentials.

Implements bcrypt-based hashing and verification. The cost factor is
intentionally slow (single-digit milliseconds on target hardware, see
spec §4.1) — this is a security property, not a bug; the verdict cache
exists partly to amortize it.
*/
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinCost is the lowest accepted hash cost; below this the hash is rejected
// as misconfigured rather than silently weak.
const MinCost = 10

// Hash produces a self-describing bcrypt hash string (cost and salt embedded)
// suitable for verbatim persistence.
//
// Security features:
// - Per-call random salt generated internally by bcrypt
// - Cost factor enforced at or above MinCost
//
// Returns an error if cost is below MinCost or the plaintext exceeds bcrypt's
// 72-byte input limit.
func Hash(plaintext string, cost int) (string, error) {
	if cost < MinCost {
		return "", fmt.Errorf("password: hash cost %d below minimum %d", cost, MinCost)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("password: hash generation failed: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash, in constant time
// with respect to the comparison itself (bcrypt.CompareHashAndPassword).
//
// Security features:
// - Never logs plaintext
// - Treats any comparison error (mismatch or malformed hash) as a failed verify
func Verify(hash, plaintext string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	return err == nil
}
