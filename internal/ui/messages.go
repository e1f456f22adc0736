// Package ui provides the Bubble Tea TUI for civic.
package ui

// EntitiesRefreshed is sent when the background refresh has replaced the
// entity snapshot. Count is the new snapshot size.
type EntitiesRefreshed struct {
	Count int
	Err   error
}

// SessionsDue is sent when the persisted session list should be reloaded.
type SessionsDue struct{}
