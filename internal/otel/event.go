// Package otel provides structured observability for civic.
//
// Events are flat structs written one per line as JSON. The Logger hands
// them to a single writer goroutine; an attached RingBuffer keeps the newest
// ones in memory for the debug overlay. ReadEvents parses a log back for the
// `civ events` command.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Entity events
	KindEntityRefresh EventKind = "entity.refresh"
	KindEntityError   EventKind = "entity.error"

	// Search events
	KindSearchQuery  EventKind = "search.query"
	KindSearchAccept EventKind = "search.accept"

	// Selection events
	KindSelectMode   EventKind = "select.mode"
	KindSelectToggle EventKind = "select.toggle"

	// Research session events
	KindSessionStart  EventKind = "research.session_start"
	KindSessionSelect EventKind = "research.session_select"
	KindSessionDelete EventKind = "research.session_delete"
	KindSessionList   EventKind = "research.session_list"
	KindSessionClear  EventKind = "research.clear"
	KindExchange      EventKind = "research.exchange"
	KindReportFetch   EventKind = "research.report"
	KindBackfill      EventKind = "research.backfill"
	KindStale         EventKind = "research.stale"
	KindResearchError EventKind = "research.error"

	// Store events
	KindStoreError EventKind = "store.error"

	// UI events
	KindKeyPress EventKind = "ui.key"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // component: "coord", "ui", "research", "main"
	RunID     string         `json:"run,omitempty"`  // random hex, same for entire app run
	SessionID string         `json:"session_id,omitempty"`
	ReportID  string         `json:"report_id,omitempty"`
	Tier      string         `json:"tier,omitempty"`
	Epoch     uint64         `json:"epoch,omitempty"`
	Dur       time.Duration  `json:"-"`                // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Query     string         `json:"query,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`   // free text
	Extra     map[string]any `json:"extra,omitempty"` // escape hatch for unusual fields
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
