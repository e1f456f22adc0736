package selection

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitialState(t *testing.T) {
	c := New()
	assert.Equal(t, Browse, c.Mode())
	assert.Empty(t, c.Selected())
	assert.Equal(t, "", c.Current())
}

func TestCompareScenario(t *testing.T) {
	c := New()
	c.SetMode(Compare)
	c.Toggle("1")
	c.Toggle("2")
	ch := c.Toggle("3")

	assert.Equal(t, []string{"2", "3"}, c.Selected())
	assert.Equal(t, Change{Added: "3", Evicted: "1"}, ch)
}

func TestSetModeClearsSelection(t *testing.T) {
	for _, from := range []Mode{Browse, Compare, Curate} {
		for _, to := range []Mode{Browse, Compare, Curate} {
			c := New()
			c.SetMode(from)
			c.Toggle("a")
			c.Toggle("b")

			c.SetMode(to)

			assert.Equal(t, to, c.Mode(), "%s -> %s", from, to)
			assert.Empty(t, c.Selected(), "%s -> %s", from, to)
		}
	}
}

func TestSetModeIgnoresUnknown(t *testing.T) {
	c := New()
	c.SetMode(Curate)
	c.Toggle("a")

	c.SetMode(Mode(42))

	assert.Equal(t, Curate, c.Mode())
	assert.Equal(t, []string{"a"}, c.Selected())
}

func TestBrowseReplaces(t *testing.T) {
	c := New()
	c.Toggle("a")
	ch := c.Toggle("b")

	assert.Equal(t, []string{"b"}, c.Selected())
	assert.Equal(t, Change{Added: "b", Evicted: "a"}, ch)

	ch = c.Toggle("b")
	assert.Empty(t, c.Selected())
	assert.Equal(t, Change{Removed: "b"}, ch)
}

func TestCurateUnbounded(t *testing.T) {
	c := New()
	c.SetMode(Curate)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		c.Toggle(id)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, c.Selected())
	assert.Equal(t, Unlimited, Curate.Capacity())

	c.Toggle("c")
	assert.Equal(t, []string{"a", "b", "d", "e"}, c.Selected())
	assert.Equal(t, 2, c.Slot("d"))
}

func TestToggleIgnoresEmptyID(t *testing.T) {
	c := New()
	c.SetMode(Compare)
	c.Toggle("a")

	ch := c.Toggle("")

	assert.False(t, ch.Changed())
	assert.Equal(t, []string{"a"}, c.Selected())
}

func TestSelectedIsACopy(t *testing.T) {
	c := New()
	c.SetMode(Curate)
	c.Toggle("a")
	c.Toggle("b")

	got := c.Selected()
	got[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, c.Selected())
}

// Under any toggle sequence in Compare mode the selection holds at most two
// ids, and they are the two most recently toggled-on distinct ids.
func TestCompareCapacityRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids := []string{"1", "2", "3", "4", "5"}

	c := New()
	c.SetMode(Compare)
	var model []string // reference window

	for step := 0; step < 2000; step++ {
		id := ids[rng.Intn(len(ids))]
		c.Toggle(id)

		if i := indexOf(model, id); i >= 0 {
			model = append(model[:i], model[i+1:]...)
		} else {
			model = append(model, id)
			if len(model) > 2 {
				model = model[1:]
			}
		}

		got := c.Selected()
		if len(got) > 2 {
			t.Fatalf("step %d: selection exceeds capacity: %v", step, got)
		}
		if !assert.Equal(t, model, got, "step %d", step) {
			return
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Browse, Compare, Curate} {
		got, ok := ParseMode(m.String())
		assert.True(t, ok)
		assert.Equal(t, m, got)
	}
	_, ok := ParseMode("shuffle")
	assert.False(t, ok)
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
