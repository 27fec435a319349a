package logger

import (
	"fmt"
	"strings"
	"unicode"
)

// SanitizeForLog renders a client-supplied string as one value of a
// key=value log line. Control characters are escaped so a value cannot end
// the line or drive the terminal. A value that is empty or contains
// whitespace, '=' or '"' is wrapped in double quotes so it cannot add fields
// of its own. Printable Unicode is kept as is.
func SanitizeForLog(s string) string {
	quote := s == "" || strings.IndexFunc(s, needsQuoting) >= 0

	var b strings.Builder
	b.Grow(len(s) + 2)
	if quote {
		b.WriteByte('"')
	}

	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case quote && (r == '"' || r == '\\'):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}

	if quote {
		b.WriteByte('"')
	}
	return b.String()
}

func needsQuoting(r rune) bool {
	return r == '=' || r == '"' || unicode.IsSpace(r)
}
