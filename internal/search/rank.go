package search

import (
	"sort"
	"strings"

	"github.com/abelbrown/civic/internal/model"
)

// Field weights, applied per matching term.
const (
	WeightName     = 10.0
	WeightPosition = 7.0
	WeightParty    = 5.0
	WeightText     = 2.0
)

// Multipliers applied to a field's base weight. They compose.
const (
	wholeWordBoost  = 2.0
	fieldStartBoost = 1.5
)

// Match is a scored entity.
type Match struct {
	Entity      model.Entity
	Score       float64
	NameMatched bool
	Matched     int // number of query terms that hit at least one field
}

// fields holds the normalized searchable text of one entity.
type fields struct {
	name     string
	party    string
	position string
	text     string
}

func fieldsOf(e model.Entity) fields {
	return fields{
		name:     Normalize(e.Name),
		party:    Normalize(e.Party),
		position: Normalize(e.Position),
		text:     Normalize(e.LatestReport.FreeText()),
	}
}

// fieldScore is the contribution of one term to one field.
func fieldScore(field, term string, base float64) float64 {
	if field == "" || !strings.Contains(field, term) {
		return 0
	}
	w := base
	if hasWord(field, term) {
		w *= wholeWordBoost
	}
	if strings.HasPrefix(field, term) {
		w *= fieldStartBoost
	}
	return w
}

func score(e model.Entity, f fields, terms []string) Match {
	m := Match{Entity: e}
	for _, term := range terms {
		name := fieldScore(f.name, term, WeightName)
		s := name +
			fieldScore(f.party, term, WeightParty) +
			fieldScore(f.position, term, WeightPosition) +
			fieldScore(f.text, term, WeightText)
		if s == 0 {
			continue
		}
		m.Score += s
		m.Matched++
		if name > 0 {
			m.NameMatched = true
		}
	}
	return m
}

// Score scores a single entity against already-normalized terms.
func Score(e model.Entity, terms []string) Match {
	return score(e, fieldsOf(e), terms)
}

// less is the ranking order: score desc, name matches first, name asc, id asc.
// It is a strict total order over entities with distinct ids.
func less(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.NameMatched != b.NameMatched {
		return a.NameMatched
	}
	an, bn := strings.ToLower(a.Entity.Name), strings.ToLower(b.Entity.Name)
	if an != bn {
		return an < bn
	}
	if a.Entity.Name != b.Entity.Name {
		return a.Entity.Name < b.Entity.Name
	}
	return a.Entity.ID < b.Entity.ID
}

// Rank returns the matching entities with their scores, best first.
// Entities matching no term are excluded. An empty query yields nil.
func Rank(entities []model.Entity, query string) []Match {
	terms := Terms(query)
	if len(terms) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(entities))
	for _, e := range entities {
		m := score(e, fieldsOf(e), terms)
		if m.Matched == 0 {
			continue
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		return less(matches[i], matches[j])
	})
	return matches
}

// Search returns entities ranked against query. A blank query returns the
// input unchanged, in its original order. A query made only of punctuation
// has no terms and matches nothing.
func Search(entities []model.Entity, query string) []model.Entity {
	if strings.TrimSpace(query) == "" {
		return entities
	}

	matches := Rank(entities, query)
	result := make([]model.Entity, len(matches))
	for i, m := range matches {
		result[i] = m.Entity
	}
	return result
}
