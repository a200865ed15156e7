// Package textmatch implements answer normalization and rubric scoring for
// free-text quiz questions. Matching is literal: a rubric group is satisfied
// when any of its phrases occurs as a substring of the normalized answer.
package textmatch

import (
	"strings"
	"unicode"
)

// umlauts expands German letter substitutions so rubric phrases can be
// written in plain ASCII.
var umlauts = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
)

// allowedPunct are the only non-word characters preserved by Normalize,
// so math notation in answers survives normalization.
const allowedPunct = "=*+-/<>()"

// Normalize canonicalizes raw answer text for matching: trim, lowercase,
// expand umlauts, strip everything that is not a word character, whitespace,
// or allowed punctuation, and collapse whitespace runs. The result is stable
// under repeated application.
func Normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = umlauts.Replace(t)

	var b strings.Builder
	b.Grow(len(t))
	for _, r := range t {
		switch {
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || strings.ContainsRune(allowedPunct, r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// WordCount returns the number of whitespace-separated tokens in a
// normalized string; empty input counts zero words.
func WordCount(norm string) int {
	return len(strings.Fields(norm))
}
