// Package coord provides background refresh coordination for civic.
package coord

import (
	"context"
	"errors"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/civic/internal/api"
	"github.com/abelbrown/civic/internal/model"
	"github.com/abelbrown/civic/internal/otel"
	"github.com/abelbrown/civic/internal/ui"
)

// Defaults for Options fields left zero.
const (
	DefaultFetchTimeout   = 30 * time.Second
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 10 * time.Second
)

const comp = "coord"

// refresher is the entity snapshot (entities.Store in production).
type refresher interface {
	Fetch(ctx context.Context) ([]model.Entity, error)
	Replace(list []model.Entity)
}

// Sender delivers messages to the running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Options configures a Coordinator.
type Options struct {
	EntityInterval  time.Duration // 0 = refresh once at start
	SessionInterval time.Duration // 0 = announce once at start
	MaxRetries      int
	FetchTimeout    time.Duration
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

// Coordinator keeps the entity snapshot fresh and tells the program when
// the persisted session list is due for a reload. It never touches
// view-owned state; everything goes through Send.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	entities refresher
	opts     Options
	log      *zap.Logger
	events   *otel.Logger
	g        *errgroup.Group
}

// New creates a Coordinator. log and events may be nil.
func New(r refresher, opts Options, log *zap.Logger, events *otel.Logger) *Coordinator {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{entities: r, opts: opts, log: log, events: events}
}

// Start begins background refreshing. Call with a cancellable context.
// Both loops run once immediately, then on their intervals.
func (c *Coordinator) Start(ctx context.Context, program Sender) {
	g, gctx := errgroup.WithContext(ctx)
	c.g = g

	g.Go(func() error {
		every(gctx, c.opts.EntityInterval, func() { c.refreshEntities(gctx, program) })
		return nil
	})
	g.Go(func() error {
		every(gctx, c.opts.SessionInterval, func() { send(program, ui.SessionsDue{}) })
		return nil
	})
}

// Wait blocks until the background goroutines exit.
// Call after canceling the context passed to Start.
func (c *Coordinator) Wait() {
	if c.g != nil {
		_ = c.g.Wait() // loops never fail
	}
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	if ctx.Err() != nil {
		return
	}
	fn()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// refreshEntities fetches the entity list, retrying recoverable transport
// failures with exponential backoff. A final failure empties the snapshot.
// Sends ui.EntitiesRefreshed when done, unless ctx was cancelled.
func (c *Coordinator) refreshEntities(ctx context.Context, program Sender) {
	start := time.Now()
	list, attempts, err := c.fetchWithRetry(ctx)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		c.log.Warn("entity refresh failed", zap.Int("attempts", attempts), zap.Error(err))
		c.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindEntityError, Err: err.Error(), Count: attempts})
		c.entities.Replace(nil)
		send(program, ui.EntitiesRefreshed{Err: err})
		return
	}

	c.entities.Replace(list)
	c.log.Debug("entity refresh", zap.Int("count", len(list)), zap.Int("attempts", attempts))
	c.emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindEntityRefresh,
		Count: len(list),
		Dur:   time.Since(start),
	})
	send(program, ui.EntitiesRefreshed{Count: len(list)})
}

func (c *Coordinator) fetchWithRetry(ctx context.Context) ([]model.Entity, int, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.opts.InitialBackoff
	exp.MaxInterval = c.opts.MaxBackoff
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	exp.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.opts.MaxRetries)), ctx)

	var (
		list     []model.Entity
		attempts int
	)
	op := func() error {
		attempts++
		fctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
		defer cancel()

		l, err := c.entities.Fetch(fctx)
		if err == nil {
			list = l
			return nil
		}
		if errors.Is(err, context.Canceled) || !api.IsRecoverable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, policy)
	return list, attempts, err
}

func (c *Coordinator) emit(e otel.Event) {
	if c.events == nil {
		return
	}
	e.Comp = comp
	c.events.Emit(e)
}

// send handles a nil program gracefully for testing.
func send(program Sender, msg tea.Msg) {
	if program != nil {
		program.Send(msg)
	}
}
