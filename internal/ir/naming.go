package ir

import (
	"strings"
	"unicode"
)

// Words splits an identifier into lower-case words. Boundaries are
// underscores, hyphens, spaces, dots, a lower-case letter or digit followed
// by an upper-case letter, and the last capital of an acronym followed by a
// lower-case letter ("HTTPServer" -> "http", "server").
func Words(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// SnakeCase converts an identifier to snake_case.
func SnakeCase(s string) string {
	return strings.Join(Words(s), "_")
}
