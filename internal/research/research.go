// Package research orchestrates research sessions: a candidate, the
// conversation about them, and the report backing it.
//
// The Orchestrator is owned by the view goroutine. Operations mutate state
// synchronously and return a tea.Cmd that performs the network call on
// another goroutine; the resulting message must be fed back through Update,
// which applies it or discards it as stale. Nothing else touches the state,
// so there are no locks.
//
// Every identity change (start, select, clear, deleting the current session)
// bumps an epoch. Requests carry the epoch they were issued under, and report
// fetches also carry a sequence number; a response whose tags no longer
// match is dropped.
package research

import (
	"context"
	"errors"
	"fmt"

	"github.com/abelbrown/civic/internal/api"
	"github.com/abelbrown/civic/internal/model"
)

// Tier is where a session lives.
type Tier int

const (
	// Ephemeral sessions live in process memory only; one at a time.
	Ephemeral Tier = iota
	// Persisted sessions are stored by the session service.
	Persisted
)

func (t Tier) String() string {
	switch t {
	case Ephemeral:
		return "ephemeral"
	case Persisted:
		return "persisted"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Phase is the orchestrator's observable state.
type Phase int

const (
	// Idle has no session and no report.
	Idle Phase = iota
	// ReportLoading has a report fetch (or the session creation preceding
	// it) in flight.
	ReportLoading
	// Ready has a session, a report, or both.
	Ready
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ReportLoading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

var (
	// ErrNoPersistedSession rejects a persisted append without a current
	// persisted session or credential. Callers fall back to the guest path.
	ErrNoPersistedSession = errors.New("no active persisted session")
	// ErrNoSession rejects a guest append without a current ephemeral session.
	ErrNoSession = errors.New("no active session")
	// ErrEmptyQuestion rejects blank questions.
	ErrEmptyQuestion = errors.New("empty question")

	// ErrUnauthorized and ErrNotFound are the transport's sentinels, so
	// errors.Is works on anything recorded in State.Err.
	ErrUnauthorized = api.ErrUnauthorized
	ErrNotFound     = api.ErrNotFound
)

// SessionService stores persisted sessions. Every call needs a credential.
type SessionService interface {
	Create(ctx context.Context, req model.NewSession, cred string) (*model.Session, error)
	List(ctx context.Context, cred string) ([]model.Session, error)
	Exchanges(ctx context.Context, sessionID, cred string, limit, offset int) ([]model.Exchange, error)
	AppendQuestion(ctx context.Context, req model.NewQuestion, cred string) (*model.Exchange, error)
	Delete(ctx context.Context, sessionID, cred string) error
}

// ReportService fetches research reports.
type ReportService interface {
	ByEntityAndRole(ctx context.Context, entityName, role string) (*model.Report, error)
	ByID(ctx context.Context, reportID string, includeSources bool) (*model.Report, error)
}

// EntityLookup resolves an entity by id for backfill.
type EntityLookup interface {
	Get(ctx context.Context, id string) (*model.Entity, error)
}

// State is a snapshot of the orchestrator. Slices and pointers are copies.
type State struct {
	Phase    Phase
	Tier     Tier
	Session  *model.Session // nil when no session is current
	Report   *model.Report  // nil until a fetch for the current identity succeeds
	Sessions []model.Session

	// Remembered (entity name, role) pair used by Refresh.
	EntityName string
	Role       string

	Err error // last operation failure, cleared by the next identity change
}

// HasReport reports whether a report is available to render.
func (s State) HasReport() bool {
	return s.Report != nil
}
