// Package search provides pure ranking, suggestion and facet functions over
// candidate entities. All functions are simple: []Entity in, results out.
// No side effects.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text, folds diacritics, strips punctuation and
// collapses whitespace. Every comparison in this package goes through it, so
// matching is case, accent and punctuation insensitive.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// Transformers carry state; build one per call so Normalize stays
	// safe for concurrent use.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			pendingSpace = true
		}
		// Punctuation and symbols are dropped without splitting the word:
		// "O'Brien" matches "obrien".
	}
	return b.String()
}

// Terms splits a query into normalized, non-empty terms.
func Terms(query string) []string {
	return strings.Fields(Normalize(query))
}

// trimWord strips leading and trailing non-alphanumerics from a raw word,
// keeping its original casing for display.
func trimWord(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// hasWord reports whether term appears as a whole word in normalized text.
func hasWord(text, term string) bool {
	for _, w := range strings.Fields(text) {
		if w == term {
			return true
		}
	}
	return false
}
