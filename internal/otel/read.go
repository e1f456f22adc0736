package otel

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Filter selects events when reading a log back.
type Filter struct {
	KindPrefix string // e.g. "research." matches every research event
	Comp       string
	MinLevel   Level
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Event) bool {
	if f.KindPrefix != "" && !strings.HasPrefix(string(e.Kind), f.KindPrefix) {
		return false
	}
	if f.Comp != "" && e.Comp != f.Comp {
		return false
	}
	return levelRank(e.Level) >= levelRank(f.MinLevel)
}

func levelRank(l Level) int {
	switch l {
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 0
	}
}

// ReadEvents decodes a JSONL event log and returns the last n events that
// match f, oldest first. n <= 0 returns every match. Malformed lines are
// skipped and counted.
func ReadEvents(r io.Reader, f Filter, n int) (events []Event, skipped int, err error) {
	ring := NewRingBuffer(n)
	var all []Event

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			skipped++
			continue
		}
		if !f.Match(e) {
			continue
		}
		if n > 0 {
			ring.Push(e)
		} else {
			all = append(all, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read events: %w", err)
	}
	if n > 0 {
		return ring.Snapshot(), skipped, nil
	}
	return all, skipped, nil
}

// Select returns buffered events matching f, oldest first.
func (r *RingBuffer) Select(f Filter) []Event {
	var out []Event
	for _, e := range r.Snapshot() {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
