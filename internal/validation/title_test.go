package validation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Blue in Green", "Blue in Green"},
		{"unicode kept", "Für Elise – 月光", "Für Elise – 月光"},
		{"control chars", "line\r\nbreak\x00here", "line break here"},
		{"collapses spaces", "  too   many  ", "too many"},
		{"empty uses fallback", "", "fallback"},
		{"only controls uses fallback", "\n\t\r", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeTitle(tt.input, "fallback"))
		})
	}
}

func TestSanitizeTitle_Truncates(t *testing.T) {
	long := strings.Repeat("é", 300)
	got := SanitizeTitle(long, "x")

	assert.LessOrEqual(t, len(got), maxTitleLength)
	assert.True(t, utf8.ValidString(got))
}
