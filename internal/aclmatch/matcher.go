/*
MQTT topic/ACL pattern matching.

Pure, stateless segment-walk matcher for `+` (single-level) and `#`
(multi-level) wildcards, grounded on the mochi-mqtt hook pattern used
elsewhere in the retrieved pack for the identical problem (matching a
published topic against a subscriber's filter set).
*/
package aclmatch

import "strings"

// Matches reports whether topic satisfies pattern.
//
// Rules (spec §4.2):
//   - literal segments must equal exactly
//   - `+` consumes exactly one non-empty topic segment
//   - `#` must be the final pattern segment and matches all remaining
//     topic segments (one or more)
//   - a pattern without `#` requires equal segment counts
func Matches(topic, pattern string) bool {
	topicParts := strings.Split(topic, "/")
	patternParts := strings.Split(pattern, "/")

	for i, p := range patternParts {
		if p == "#" {
			// '#' must be the last segment and match one or more remaining.
			return i < len(topicParts)
		}

		if i >= len(topicParts) {
			return false
		}

		switch p {
		case "+":
			if topicParts[i] == "" {
				return false
			}
		default:
			if topicParts[i] != p {
				return false
			}
		}
	}

	return len(patternParts) == len(topicParts)
}

// Allow reports whether topic is permitted by the pattern set. An empty
// pattern list allows all topics (spec §4.2 set semantics).
func Allow(topic string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if Matches(topic, p) {
			return true
		}
	}
	return false
}

// IsAdminTopic reports whether topic falls under the admin tree, given the
// configured admin prefix (default "admin/").
func IsAdminTopic(topic, adminPrefix string) bool {
	return strings.HasPrefix(topic, adminPrefix)
}
