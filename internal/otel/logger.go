package otel

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// queueSize bounds the events waiting for the writer goroutine.
const queueSize = 4096

// Logger appends events to a JSONL stream from a single writer goroutine.
//
// Emit never blocks: when the queue is full or the logger is closed the
// event is counted as dropped. The writer flushes whenever the queue runs
// empty, so a reader tailing the file sees events without waiting for Close.
type Logger struct {
	runID string
	queue chan Event
	out   *bufio.Writer
	done  chan struct{}

	mu     sync.RWMutex // guards closed against a concurrent Close
	closed bool
	ring   atomic.Pointer[RingBuffer]

	dropped atomic.Uint64
	once    sync.Once
}

// NewLogger starts a Logger writing to w. Close stops it.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		runID: uuid.NewString(),
		queue: make(chan Event, queueSize),
		out:   bufio.NewWriter(w),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

// NewNullLogger returns a Logger that discards everything it is given.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func (l *Logger) run() {
	defer close(l.done)

	enc := json.NewEncoder(l.out)
	for e := range l.queue {
		if err := enc.Encode(e); err != nil {
			l.dropped.Add(1)
		}
		if rb := l.ring.Load(); rb != nil {
			rb.Push(e)
		}
		if len(l.queue) == 0 {
			if err := l.out.Flush(); err != nil {
				l.dropped.Add(1)
			}
		}
	}
	_ = l.out.Flush()
}

// Emit stamps e with the run id and, when unset, the current time, then
// queues it.
func (l *Logger) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.RunID = l.runID

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	select {
	case l.queue <- e:
	default:
		l.dropped.Add(1)
	}
}

// Stale records an async response that arrived after its request was
// superseded.
func (l *Logger) Stale(comp, what string, epoch uint64) {
	l.Emit(Event{Level: LevelDebug, Kind: KindStale, Comp: comp, Msg: what, Epoch: epoch})
}

// RunID is shared by every event this logger writes.
func (l *Logger) RunID() string {
	return l.runID
}

// SetRingBuffer mirrors every written event into rb. Nil detaches.
func (l *Logger) SetRingBuffer(rb *RingBuffer) {
	l.ring.Store(rb)
}

// Dropped returns how many events were lost so far.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close drains the queue, flushes the writer and returns the number of
// dropped events. Later calls only report the count.
func (l *Logger) Close() uint64 {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()
		<-l.done
	})
	return l.dropped.Load()
}
