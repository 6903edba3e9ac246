// Package textnorm folds bookmaker strings into a comparable form.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases, strips accents, turns punctuation into spaces and collapses whitespace.
// "  Montréal  Canadiens " and "montreal canadiens" fold to the same string.
func Fold(s string) string {
	s = strings.ToLower(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '&', r == '+', r == '-', r == '/', r == '.':
			return r
		default:
			return ' '
		}
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

// Collapse only lowercases and collapses whitespace.
func Collapse(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
