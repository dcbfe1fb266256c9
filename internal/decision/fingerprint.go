/*
Cache fingerprint composition (spec §4.4): bit-exact digests of a
decision's inputs, built so the plaintext password never reaches the
cache. The field separator is 0x1F (ASCII unit separator), chosen
because it cannot appear in a username, client id, or topic filter.

The spec's password_hash_of(password) is necessarily a fast, deterministic
digest here, not the adaptive bcrypt hash: bcrypt salts itself per call,
so hashing the same plaintext twice never produces the same string and
could never collapse into a cache hit. SHA-256 gives a stable fingerprint
component while still never persisting the plaintext (see DESIGN.md).
*/
package decision

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
)

const fieldSeparator = "\x1f"

func sumHex(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte(fieldSeparator))
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func passwordDigest(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func connectFingerprint(username, clientID, password string) string {
	return sumHex(username, clientID, passwordDigest(password))
}

func publishFingerprint(username, topic string, qos int) string {
	return sumHex(username, topic, strconv.Itoa(qos))
}

func subscribeFingerprint(username string, filters []string) string {
	sorted := make([]string, len(filters))
	copy(sorted, filters)
	sort.Strings(sorted)
	return sumHex(username, sumHex(sorted...))
}
