package overlay

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Sanitize strips characters that have historically broken downstream text
// handling (quotes, colons, brackets, backslashes) plus control characters,
// and collapses whitespace. The text keeps its original casing.
func Sanitize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '\'', '"', ':', '[', ']', '\\':
			continue
		}
		if unicode.IsControl(r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// SanitizeCaption sanitizes and uppercases caption text for display. The
// caser is built per call; a cases.Caser carries state and must not be
// shared across goroutines.
func SanitizeCaption(text string) string {
	return cases.Upper(language.Und).String(Sanitize(text))
}
