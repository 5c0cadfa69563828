package catalog

import (
	"strings"
	"unicode"
)

// Fold canonicalizes user input and option labels for comparison: lower case,
// surrounding emoji and punctuation stripped, inner whitespace collapsed.
// "✓ Confirm & Continue" and "confirm & continue" fold to the same string.
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return strings.Join(strings.Fields(s), " ")
}
