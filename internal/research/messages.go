package research

import "github.com/abelbrown/civic/internal/model"

// Messages produced by orchestrator commands. Feed them back through
// Orchestrator.Update.

// SessionCreated is the result of a persisted session creation.
type SessionCreated struct {
	Epoch   uint64
	Req     model.NewSession
	Session *model.Session
	Err     error
}

// ReportFetched is the result of a report fetch, after backfill.
type ReportFetched struct {
	Epoch    uint64
	Seq      uint64
	Report   *model.Report
	Backfill string // where missing metadata came from
	Err      error
}

// ExchangesLoaded is the result of loading a persisted session's exchanges.
type ExchangesLoaded struct {
	Epoch     uint64
	SessionID string
	Exchanges []model.Exchange
	Err       error
}

// ExchangeConfirmed is the service's answer to an appended question.
type ExchangeConfirmed struct {
	Epoch     uint64
	SessionID string
	TempID    string
	Exchange  *model.Exchange
	Err       error
}

// SessionsListed is the result of listing persisted sessions.
type SessionsListed struct {
	Seq      uint64
	Sessions []model.Session
	Err      error
}

// SessionDeleted is the result of deleting a persisted session.
type SessionDeleted struct {
	SessionID string
	Err       error
}
