package otel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counts(events []Event) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = e.Count
	}
	return out
}

func pushN(r *RingBuffer, from, to int) {
	for i := from; i <= to; i++ {
		r.Push(Event{Kind: KindSearchQuery, Count: i})
	}
}

func TestRingKeepsNewest(t *testing.T) {
	tests := []struct {
		name   string
		pushed int
		want   []int
	}{
		{"empty", 0, nil},
		{"partial", 2, []int{1, 2}},
		{"exactly full", 4, []int{1, 2, 3, 4}},
		{"wrapped", 6, []int{3, 4, 5, 6}},
		{"wrapped twice", 9, []int{6, 7, 8, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRingBuffer(4)
			pushN(r, 1, tt.pushed)

			snap := r.Snapshot()
			if tt.want == nil {
				assert.Nil(t, snap)
			} else {
				assert.Equal(t, tt.want, counts(snap))
			}
			assert.Equal(t, len(tt.want), r.Len())
		})
	}
}

func TestRingLast(t *testing.T) {
	r := NewRingBuffer(5)
	pushN(r, 1, 7)

	assert.Equal(t, []int{6, 7}, counts(r.Last(2)))
	assert.Equal(t, []int{3, 4, 5, 6, 7}, counts(r.Last(50)))
	assert.Nil(t, r.Last(0))
	assert.Nil(t, r.Last(-1))
	assert.Nil(t, NewRingBuffer(3).Last(2))
}

func TestRingStatsTrackEviction(t *testing.T) {
	r := NewRingBuffer(3)
	r.Push(Event{Kind: KindStale})
	r.Push(Event{Kind: KindReportFetch})
	r.Push(Event{Kind: KindReportFetch})
	assert.Equal(t, map[EventKind]int{KindStale: 1, KindReportFetch: 2}, r.Stats())

	r.Push(Event{Kind: KindSearchQuery})
	r.Push(Event{Kind: KindSearchQuery})

	assert.Equal(t, map[EventKind]int{KindReportFetch: 1, KindSearchQuery: 2}, r.Stats())
}

func TestRingStatsIsACopy(t *testing.T) {
	r := NewRingBuffer(3)
	r.Push(Event{Kind: KindStale})

	s := r.Stats()
	s[KindStale] = 99

	assert.Equal(t, 1, r.Stats()[KindStale])
}

func TestRingCopiesExtra(t *testing.T) {
	r := NewRingBuffer(2)
	extra := map[string]any{"slot": 1}
	r.Push(Event{Kind: KindSelectToggle, Extra: extra})
	extra["slot"] = 2

	assert.Equal(t, 1, r.Snapshot()[0].Extra["slot"])
}

func TestRingSizeDefaults(t *testing.T) {
	assert.Equal(t, DefaultRingSize, NewRingBuffer(0).Cap())
	assert.Equal(t, DefaultRingSize, NewRingBuffer(-3).Cap())
	assert.Equal(t, 7, NewRingBuffer(7).Cap())
}

func TestRingConcurrentAccess(t *testing.T) {
	r := NewRingBuffer(64)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			pushN(r, 1, 500)
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = r.Snapshot()
				_ = r.Stats()
				_ = r.Last(5)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 64, r.Len())
	assert.Equal(t, 64, r.Stats()[KindSearchQuery])
}

func TestRingFedByLogger(t *testing.T) {
	r := NewRingBuffer(8)
	l := NewNullLogger()
	l.SetRingBuffer(r)

	l.Emit(Event{Kind: KindStartup, Comp: "main"})
	l.Emit(Event{Kind: KindSearchQuery, Comp: "ui", Query: "santos"})
	require.Zero(t, l.Close())

	got := r.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "santos", got[1].Query)
	assert.Equal(t, l.RunID(), got[0].RunID)
}
