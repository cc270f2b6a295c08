package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tokenize lower-cases text and splits it on non-alphanumeric runes. Tokens
// shorter than minLen runes are dropped.
func Tokenize(text string, minLen int) []string {
	fields := strings.FieldsFunc(Lower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, field := range fields {
		if len([]rune(field)) < minLen {
			continue
		}
		out = append(out, field)
	}
	return out
}

// Lower folds text to lower case without locale-specific rules.
func Lower(text string) string {
	return cases.Lower(language.Und).String(text)
}

// Truncate returns at most limit runes of s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
