package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/abelbrown/civic/internal/model"
)

// MaxSuggestions caps the suggestion list.
const MaxSuggestions = 5

// MinSuggestLen is the shortest normalized query that produces suggestions.
const MinSuggestLen = 2

// Suggest returns up to MaxSuggestions completions for query.
//
// Candidates are whole name/position values containing the query and single
// words from any searchable field that contain the query without being equal
// to it. Shorter completions come first.
func Suggest(entities []model.Entity, query string) []string {
	q := Normalize(query)
	if utf8.RuneCountInString(q) < MinSuggestLen {
		return []string{}
	}

	seen := make(map[string]bool)
	out := make([]string, 0, MaxSuggestions)
	add := func(s string) {
		key := Normalize(s)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, s)
	}

	for _, e := range entities {
		for _, v := range []string{e.Name, e.Position} {
			v = strings.TrimSpace(v)
			if v != "" && strings.Contains(Normalize(v), q) {
				add(v)
			}
		}

		for _, text := range []string{e.Name, e.Party, e.Position, e.LatestReport.FreeText()} {
			for _, raw := range strings.Fields(text) {
				w := trimWord(raw)
				nw := Normalize(w)
				if nw == q || !strings.Contains(nw, q) {
					continue
				}
				add(w)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(out[i]), utf8.RuneCountInString(out[j])
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})

	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}
