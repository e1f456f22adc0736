// Package selection tracks which entities are selected and under which mode.
//
// A Controller is owned by a single view and is not safe for concurrent use.
// It never validates ids against the entity store; callers do that.
package selection

import "fmt"

// Mode governs how many entities may be selected at once.
type Mode int

const (
	// Browse selects one entity at a time; selecting acts as navigation.
	Browse Mode = iota
	// Compare keeps a sliding window of the two most recent selections.
	Compare
	// Curate has no capacity limit.
	Curate
)

// Unlimited is the capacity reported for modes without a limit.
const Unlimited = -1

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Browse:
		return "browse"
	case Compare:
		return "compare"
	case Curate:
		return "curate"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Capacity returns the maximum selection size for m, or Unlimited.
func (m Mode) Capacity() int {
	switch m {
	case Browse:
		return 1
	case Compare:
		return 2
	default:
		return Unlimited
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m >= Browse && m <= Curate
}

// ParseMode maps a mode name back to a Mode.
func ParseMode(s string) (Mode, bool) {
	for _, m := range []Mode{Browse, Compare, Curate} {
		if m.String() == s {
			return m, true
		}
	}
	return Browse, false
}

// Change describes the effect of a Toggle.
type Change struct {
	Added   string // id added, if any
	Removed string // id deselected by the toggle itself
	Evicted string // id pushed out to make room
}

// Changed reports whether the toggle did anything.
func (c Change) Changed() bool {
	return c.Added != "" || c.Removed != "" || c.Evicted != ""
}

// Controller is the selection state machine.
// selected is kept in insertion order; views rely on it for stable slots.
type Controller struct {
	mode     Mode
	selected []string
}

// New returns a Controller in Browse mode with nothing selected.
func New() *Controller {
	return &Controller{mode: Browse}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// SetMode empties the selection and switches to m. It is the only way the
// mode changes. Unknown modes are ignored.
func (c *Controller) SetMode(m Mode) {
	if !m.Valid() {
		return
	}
	c.selected = nil
	c.mode = m
}

// Toggle deselects id if it is selected, otherwise selects it, applying the
// mode's eviction policy when at capacity. Empty ids are ignored.
func (c *Controller) Toggle(id string) Change {
	if id == "" {
		return Change{}
	}

	if i := c.Slot(id); i >= 0 {
		c.selected = append(c.selected[:i], c.selected[i+1:]...)
		return Change{Removed: id}
	}

	var ch Change
	switch c.mode {
	case Browse:
		if len(c.selected) > 0 {
			ch.Evicted = c.selected[0]
		}
		c.selected = []string{id}
	case Compare:
		if len(c.selected) >= Compare.Capacity() {
			ch.Evicted = c.selected[0]
			c.selected = c.selected[1:]
		}
		c.selected = append(c.selected, id)
	default:
		c.selected = append(c.selected, id)
	}
	ch.Added = id
	return ch
}

// Selected returns a copy of the selected ids in insertion order.
func (c *Controller) Selected() []string {
	out := make([]string, len(c.selected))
	copy(out, c.selected)
	return out
}

// Len returns the number of selected ids.
func (c *Controller) Len() int {
	return len(c.selected)
}

// Contains reports whether id is selected.
func (c *Controller) Contains(id string) bool {
	return c.Slot(id) >= 0
}

// Slot returns the insertion index of id, or -1.
func (c *Controller) Slot(id string) int {
	for i, s := range c.selected {
		if s == id {
			return i
		}
	}
	return -1
}

// Current returns the most recently selected id, or "".
func (c *Controller) Current() string {
	if len(c.selected) == 0 {
		return ""
	}
	return c.selected[len(c.selected)-1]
}

// Clear empties the selection without changing mode.
func (c *Controller) Clear() {
	c.selected = nil
}
