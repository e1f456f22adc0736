package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/civic/internal/model"
)

func names(entities []model.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

func ballot() []model.Entity {
	return []model.Entity{
		{ID: "1", Name: "Maria Santos", Party: "Progressive Party", Position: "Mayor"},
		{ID: "2", Name: "Antonio Reyes", Party: "Nationalist Party", Position: "Governor"},
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Maria Santos", "maria santos"},
		{"  María   O'Brien!! ", "maria obrien"},
		{"Jean-Luc, Jr.", "jeanluc jr"},
		{"SANTOS\tReyes\n", "santos reyes"},
		{"100% Green", "100 green"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestTermsDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"maria", "santos"}, Terms("  Maria ,  -- Santos "))
	assert.Empty(t, Terms("?!"))
}

func TestSearchScenario(t *testing.T) {
	entities := ballot()

	result := Search(entities, "santos")
	assert.Equal(t, []string{"Maria Santos"}, names(result))

	matches := Rank(entities, "santos")
	require.Len(t, matches, 1)
	assert.Greater(t, matches[0].Score, 0.0)
	assert.True(t, matches[0].NameMatched)
}

func TestSearchEmptyQueryIsIdentity(t *testing.T) {
	entities := []model.Entity{
		{ID: "3", Name: "Zed"},
		{ID: "1", Name: "Amy"},
		{ID: "2", Name: "Bob"},
	}
	for _, q := range []string{"", "   ", "\t\n"} {
		got := Search(entities, q)
		assert.Equal(t, names(entities), names(got), "query %q", q)
	}
}

func TestSearchPunctuationOnlyMatchesNothing(t *testing.T) {
	assert.Empty(t, Search(ballot(), "?!"))
}

func TestSearchExcludesNonMatching(t *testing.T) {
	result := Search(ballot(), "senator")
	assert.Empty(t, result)
}

func TestFieldWeights(t *testing.T) {
	tests := []struct {
		name   string
		entity model.Entity
		term   string
		want   float64
	}{
		{"name whole word at start", model.Entity{Name: "Santos"}, "santos", WeightName * 2 * 1.5},
		{"name whole word", model.Entity{Name: "Maria Santos"}, "santos", WeightName * 2},
		{"name prefix only", model.Entity{Name: "Santosa"}, "santos", WeightName * 1.5},
		{"name substring", model.Entity{Name: "Evergreen"}, "green", WeightName},
		{"party whole word", model.Entity{Party: "Party Green"}, "green", WeightParty * 2},
		{"position at start", model.Entity{Position: "Mayor"}, "mayor", WeightPosition * 2 * 1.5},
		{
			"report text",
			model.Entity{LatestReport: &model.ReportDigest{Summary: "led the housing reform"}},
			"housing",
			WeightText * 2,
		},
		{
			"fields sum",
			model.Entity{Name: "Green Lee", Party: "Green"},
			"green",
			WeightName*2*1.5 + WeightParty*2*1.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.entity, []string{tt.term})
			assert.InDelta(t, tt.want, got.Score, 1e-9)
		})
	}
}

func TestRankTieBreaks(t *testing.T) {
	entities := []model.Entity{
		{ID: "y", Name: "Zoe", Party: "Party Green"},  // 10, no name match
		{ID: "a", Name: "Aaron", Party: "The Green"},  // 10, no name match
		{ID: "x", Name: "Evergreen Lee"},              // 10, name match
		{ID: "t", Name: "Green Top"},                  // 30
		{ID: "d2", Name: "Aaron", Party: "The Green"}, // duplicate name, id breaks the tie
	}

	got := Rank(entities, "green")
	ids := make([]string, len(got))
	for i, m := range got {
		ids[i] = m.Entity.ID
	}
	if diff := cmp.Diff([]string{"t", "x", "a", "d2", "y"}, ids); diff != "" {
		t.Errorf("rank order mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchDeterministic(t *testing.T) {
	entities := []model.Entity{
		{ID: "1", Name: "Ana Cruz", Party: "Green"},
		{ID: "2", Name: "Ben Cruz", Party: "Green"},
		{ID: "3", Name: "Cruz Ana", Position: "Council"},
		{ID: "4", Name: "Dana", Party: "Cruz Alliance"},
		{ID: "5", Name: "Ana Cruz", Party: "Green"},
	}
	reversed := make([]model.Entity, len(entities))
	for i, e := range entities {
		reversed[len(entities)-1-i] = e
	}

	first := Search(entities, "ana cruz")
	second := Search(reversed, "ana cruz")

	idsOf := func(es []model.Entity) []string {
		out := make([]string, len(es))
		for i, e := range es {
			out[i] = e.ID
		}
		return out
	}
	assert.Equal(t, idsOf(first), idsOf(second))
	assert.Len(t, first, 5)
}

func TestScoreMonotonicInTerms(t *testing.T) {
	e := model.Entity{Name: "Maria Santos", Party: "Progressive Party", Position: "Mayor"}
	base := Score(e, []string{"maria"})
	more := Score(e, []string{"maria", "mayor"})
	miss := Score(e, []string{"maria", "governor"})

	assert.GreaterOrEqual(t, more.Score, base.Score)
	assert.Equal(t, base.Score, miss.Score)
	assert.Equal(t, 2, more.Matched)
	assert.Equal(t, 1, miss.Matched)
}

func TestSuggestScenario(t *testing.T) {
	got := Suggest(ballot(), "san")
	assert.Equal(t, []string{"Santos", "Maria Santos"}, got)
}

func TestSuggestShortQuery(t *testing.T) {
	assert.Equal(t, []string{}, Suggest(ballot(), ""))
	assert.Equal(t, []string{}, Suggest(ballot(), "s"))
	assert.Equal(t, []string{}, Suggest(ballot(), " !s "))
}

func TestSuggestSkipsExactWord(t *testing.T) {
	entities := []model.Entity{{ID: "1", Name: "Mayor Bell", Position: "Mayor"}}
	got := Suggest(entities, "mayor")
	// "Mayor" as a word equals the query; whole values still count.
	assert.Equal(t, []string{"Mayor", "Mayor Bell"}, got)
}

func TestSuggestCapAndOrder(t *testing.T) {
	entities := []model.Entity{
		{ID: "1", Name: "Ann Anderson"},
		{ID: "2", Name: "Dana Andrews", Party: "Grand Alliance"},
		{ID: "3", Name: "Hannah Banks", Position: "Planning Chair"},
	}
	got := Suggest(entities, "an")
	require.Len(t, got, MaxSuggestions)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, len([]rune(got[i-1])), len([]rune(got[i])), "suggestions not sorted by length: %v", got)
	}

	seen := map[string]bool{}
	for _, s := range got {
		key := Normalize(s)
		assert.False(t, seen[key], "duplicate suggestion %q", s)
		seen[key] = true
	}
}
