package validation

import (
	"strings"
	"unicode/utf8"
)

const maxTitleLength = 200

// SanitizeTitle makes a track title safe to log and display: control
// characters become spaces, runs of whitespace collapse, and the result is
// cut at a rune boundary. An empty result falls back to fallback.
func SanitizeTitle(title, fallback string) string {
	var sb strings.Builder
	sb.Grow(len(title))
	for _, r := range title {
		if r < 32 || r == 127 || r == utf8.RuneError {
			r = ' '
		}
		sb.WriteRune(r)
	}

	out := strings.Join(strings.Fields(sb.String()), " ")
	if out == "" {
		return fallback
	}
	return truncateToBytes(out, maxTitleLength)
}

func truncateToBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return strings.TrimSpace(s[:maxBytes])
}
