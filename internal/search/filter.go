package search

import (
	"sort"
	"strings"

	"github.com/abelbrown/civic/internal/model"
)

// ByParty keeps only entities whose party matches one of parties.
// Matching is normalized, so "Progressive Party" equals "progressive party".
func ByParty(entities []model.Entity, parties []string) []model.Entity {
	return byFacet(entities, parties, func(e model.Entity) string { return e.Party })
}

// ByPosition keeps only entities running for one of positions.
func ByPosition(entities []model.Entity, positions []string) []model.Entity {
	return byFacet(entities, positions, func(e model.Entity) string { return e.Position })
}

func byFacet(entities []model.Entity, values []string, facet func(model.Entity) string) []model.Entity {
	if len(entities) == 0 || len(values) == 0 {
		return []model.Entity{}
	}

	// Build a set of allowed values for O(1) lookup
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[Normalize(v)] = true
	}

	result := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		if allowed[Normalize(facet(e))] {
			result = append(result, e)
		}
	}
	return result
}

// Dedup removes entities with duplicate IDs, then entities whose names are
// equal once normalized. First occurrence wins.
func Dedup(entities []model.Entity) []model.Entity {
	if len(entities) == 0 {
		return []model.Entity{}
	}

	seenIDs := make(map[string]bool)
	seenNames := make(map[string]bool)
	result := make([]model.Entity, 0, len(entities))

	for _, e := range entities {
		if e.ID != "" && seenIDs[e.ID] {
			continue
		}
		name := Normalize(e.Name)
		if name != "" && seenNames[name] {
			continue
		}

		if e.ID != "" {
			seenIDs[e.ID] = true
		}
		if name != "" {
			seenNames[name] = true
		}
		result = append(result, e)
	}
	return result
}

// Parties lists the distinct parties present, sorted case-insensitively.
func Parties(entities []model.Entity) []string {
	return facetValues(entities, func(e model.Entity) string { return e.Party })
}

// Positions lists the distinct positions present, sorted case-insensitively.
func Positions(entities []model.Entity) []string {
	return facetValues(entities, func(e model.Entity) string { return e.Position })
}

func facetValues(entities []model.Entity, facet func(model.Entity) string) []string {
	seen := make(map[string]bool)
	values := []string{}
	for _, e := range entities {
		v := strings.TrimSpace(facet(e))
		key := Normalize(v)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		return strings.ToLower(values[i]) < strings.ToLower(values[j])
	})
	return values
}
