package validators

import (
	"strings"
	"unicode"
)

// MaxTextLen bounds the free-text fields stored on users and teams.
const MaxTextLen = 255

// CleanText collapses whitespace and control characters into single spaces,
// trims the ends and keeps at most maxRunes runes. A non-positive maxRunes
// disables truncation.
func CleanText(s string, maxRunes int) string {
	out := make([]rune, 0, len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			pendingSpace = len(out) > 0
			continue
		}
		if pendingSpace {
			out = append(out, ' ')
			pendingSpace = false
		}
		out = append(out, r)
	}
	if maxRunes > 0 && len(out) > maxRunes {
		out = out[:maxRunes]
	}
	return strings.TrimRight(string(out), " ")
}
