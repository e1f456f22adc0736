// Package history keeps the recent-search list.
//
// The list is most-recent-first, capped, de-duplicated by exact text and
// persisted through a key/value store so it survives restarts. It is mutated
// only by Add and Clear.
package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// DefaultKey is the store key holding the list.
const DefaultKey = "search.recent"

// MaxEntries caps the list.
const MaxEntries = 10

// KV is the persistence surface the list needs.
type KV interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
	Delete(key string) error
}

// History is the recent-search list. Safe for concurrent use.
type History struct {
	mu      sync.Mutex
	kv      KV
	key     string
	entries []string
}

// New returns an empty History backed by kv. Call Load to read the
// persisted list.
func New(kv KV) *History {
	return &History{kv: kv, key: DefaultKey}
}

// Load reads the persisted list, replacing the in-memory copy. A corrupt
// value is treated as an empty list.
func (h *History) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	raw, found, err := h.kv.Get(h.key)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	h.entries = nil
	if !found {
		return nil
	}

	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}
	h.entries = normalize(entries)
	return nil
}

// Add records an accepted query at the front of the list. Blank queries are
// ignored. An existing identical entry moves to the front.
func (h *History) Add(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	next := make([]string, 0, MaxEntries)
	next = append(next, query)
	for _, e := range h.entries {
		if e == query {
			continue
		}
		if len(next) == MaxEntries {
			break
		}
		next = append(next, e)
	}

	if err := h.save(next); err != nil {
		return err
	}
	h.entries = next
	return nil
}

// Clear removes every entry, in memory and in the store.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.kv.Delete(h.key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	h.entries = nil
	return nil
}

// Entries returns a copy of the list, most recent first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Caller must hold h.mu.
func (h *History) save(entries []string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.kv.Put(h.key, string(data)); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// normalize enforces the list invariants on data read from the store,
// which may have been written by an older client.
func normalize(entries []string) []string {
	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, MaxEntries)
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
		if len(out) == MaxEntries {
			break
		}
	}
	return out
}
