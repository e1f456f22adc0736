package research

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/abelbrown/civic/internal/model"
	"github.com/abelbrown/civic/internal/otel"
)

// Update applies a message produced by one of the orchestrator's commands.
// It reports whether msg belonged to the orchestrator and may return a
// follow-up command. Stale messages are dropped.
func (o *Orchestrator) Update(msg tea.Msg) (tea.Cmd, bool) {
	if o.ctx.Err() != nil {
		switch msg.(type) {
		case SessionCreated, ReportFetched, ExchangesLoaded, ExchangeConfirmed, SessionsListed, SessionDeleted:
			return nil, true
		}
		return nil, false
	}

	var cmd tea.Cmd
	switch msg := msg.(type) {
	case SessionCreated:
		cmd = o.applySessionCreated(msg)
	case ReportFetched:
		o.applyReport(msg)
	case ExchangesLoaded:
		o.applyExchanges(msg)
	case ExchangeConfirmed:
		o.applyConfirmed(msg)
	case SessionsListed:
		o.applySessions(msg)
	case SessionDeleted:
		o.applyDeleted(msg)
	default:
		return nil, false
	}
	return cmd, true
}

func (o *Orchestrator) stale(what string, epoch uint64) {
	o.d.Metrics.Stale.WithLabelValues(what).Inc()
	o.d.Log.Debug("discarding stale response",
		zap.String("response", what),
		zap.Uint64("epoch", epoch),
		zap.Uint64("current", o.epoch))
	if o.d.Events != nil {
		o.d.Events.Stale(comp, what, epoch)
	}
}

func (o *Orchestrator) fail(kind otel.EventKind, what string, err error) {
	o.err = err
	o.d.Log.Warn(what+" failed", zap.Error(err))
	o.emit(otel.Event{Level: otel.LevelWarn, Kind: kind, Err: err.Error(), Msg: what, Epoch: o.epoch})
}

func (o *Orchestrator) applySessionCreated(msg SessionCreated) tea.Cmd {
	if msg.Epoch != o.epoch {
		o.stale("session", msg.Epoch)
		// The session exists on the service all the same.
		if msg.Err == nil && msg.Session != nil {
			o.upsertSession(*msg.Session)
			o.notify()
		}
		return nil
	}

	if msg.Err != nil {
		if errors.Is(msg.Err, ErrUnauthorized) {
			o.d.Log.Info("session create unauthorized, continuing as guest")
			o.d.Metrics.Sessions.WithLabelValues(Ephemeral.String()).Inc()
			o.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSessionStart, Tier: Ephemeral.String(), Query: msg.Req.EntityName, Msg: "fallback"})
			o.newIdentity()
			cmd := o.startEphemeral(msg.Req.EntityName, msg.Req.Role)
			o.notify()
			return cmd
		}
		o.fail(otel.KindResearchError, "create session", msg.Err)
		o.current = nil
		o.entityName, o.role = "", ""
		o.phase = Idle
		o.notify()
		return nil
	}
	if msg.Session == nil {
		o.fail(otel.KindResearchError, "create session", ErrNotFound)
		o.phase = Idle
		o.entityName, o.role = "", ""
		o.notify()
		return nil
	}

	s := cloneSession(*msg.Session)
	model.SortExchanges(s.Messages)
	if s.Entity.Name == "" {
		s.Entity.Name = msg.Req.EntityName
	}
	if s.Role == "" {
		s.Role = msg.Req.Role
	}
	o.upsertSession(s)
	o.current = &s
	o.tier = Persisted
	o.entityName, o.role = s.Entity.Name, s.Role
	o.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSessionStart, Tier: Persisted.String(), SessionID: s.ID, Query: s.Entity.Name})

	// Keyed by the service's canonical name, not what the caller typed.
	cmd := o.fetchByName(s.Entity.Name, s.Role)
	o.notify()
	return cmd
}

func (o *Orchestrator) applyReport(msg ReportFetched) {
	if msg.Epoch != o.epoch || msg.Seq != o.reportSeq {
		o.stale("report", msg.Epoch)
		return
	}

	o.phase = Ready
	if msg.Err != nil {
		outcome := "error"
		if errors.Is(msg.Err, ErrNotFound) {
			outcome = "not_found"
		}
		o.d.Metrics.ReportFetches.WithLabelValues(outcome).Inc()
		o.fail(otel.KindReportFetch, "fetch report", msg.Err)
		o.notify()
		return
	}

	o.d.Metrics.ReportFetches.WithLabelValues("ok").Inc()
	o.d.Metrics.Backfills.WithLabelValues(msg.Backfill).Inc()
	o.report = msg.Report.Clone()
	o.err = nil

	if o.current != nil {
		patchSession(o.current, o.report)
		if i := o.sessionIndex(o.current.ID); i >= 0 {
			patchSession(&o.sessions[i], o.report)
		}
	}

	o.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindReportFetch, ReportID: o.report.ID, Epoch: msg.Epoch})
	if msg.Backfill != backfillNone {
		o.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindBackfill, ReportID: o.report.ID, Msg: msg.Backfill})
	}
	o.notify()
}

func (o *Orchestrator) applyExchanges(msg ExchangesLoaded) {
	if msg.Epoch != o.epoch || o.current == nil || o.current.ID != msg.SessionID {
		o.stale("exchanges", msg.Epoch)
		return
	}
	if msg.Err != nil {
		o.fail(otel.KindResearchError, "load exchanges", msg.Err)
		o.notify()
		return
	}

	// Questions asked while the load was in flight stay after the loaded
	// history unless the service already returned them.
	loaded := make(map[string]bool, len(msg.Exchanges))
	merged := make([]model.Exchange, 0, len(msg.Exchanges)+len(o.current.Messages))
	for _, x := range msg.Exchanges {
		loaded[x.ID] = true
		merged = append(merged, x)
	}
	model.SortExchanges(merged)
	for _, x := range o.current.Messages {
		if !loaded[x.ID] {
			merged = append(merged, x)
		}
	}
	o.current.Messages = merged
	o.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindExchange, SessionID: msg.SessionID, Count: len(msg.Exchanges)})
	o.notify()
}

func (o *Orchestrator) applyConfirmed(msg ExchangeConfirmed) {
	if msg.Epoch != o.epoch || o.current == nil || o.current.ID != msg.SessionID {
		o.stale("exchange", msg.Epoch)
		return
	}
	msgs := o.current.Messages
	idx := indexOfExchange(msgs, msg.TempID)
	if idx < 0 {
		o.stale("exchange", msg.Epoch)
		return
	}

	if msg.Err != nil || msg.Exchange == nil {
		err := msg.Err
		if err == nil {
			err = ErrNotFound
		}
		o.current.Messages = append(msgs[:idx], msgs[idx+1:]...)
		o.fail(otel.KindResearchError, "append question", err)
		o.notify()
		return
	}

	confirmed := *msg.Exchange
	if confirmed.ID == "" {
		confirmed.ID = msg.TempID
	}
	if confirmed.CreatedAt.IsZero() {
		confirmed.CreatedAt = msgs[idx].CreatedAt
	}
	msgs[idx] = confirmed
	// A load that raced the append may already hold the confirmed entry.
	for i := len(msgs) - 1; i >= 0; i-- {
		if i != idx && msgs[i].ID == confirmed.ID {
			msgs = append(msgs[:i], msgs[i+1:]...)
		}
	}
	o.current.Messages = msgs
	o.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindExchange, Tier: Persisted.String(), SessionID: msg.SessionID})
	o.notify()
}

func (o *Orchestrator) applySessions(msg SessionsListed) {
	if msg.Seq != o.listSeq {
		o.stale("sessions", o.epoch)
		return
	}
	if msg.Err != nil {
		if errors.Is(msg.Err, ErrUnauthorized) {
			o.sessions = nil
		}
		o.fail(otel.KindResearchError, "list sessions", msg.Err)
		o.notify()
		return
	}

	list := cloneSessions(msg.Sessions)
	model.SortSessions(list)
	// Keep metadata backfilled into records the service has not caught up on.
	known := make(map[string]model.Session, len(o.sessions))
	for _, s := range o.sessions {
		known[s.ID] = s
	}
	for i := range list {
		if prev, ok := known[list[i].ID]; ok {
			carryMeta(&list[i], prev)
		}
	}
	o.sessions = list
	o.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSessionList, Count: len(list)})
	o.notify()
}

func (o *Orchestrator) applyDeleted(msg SessionDeleted) {
	if msg.Err != nil && !errors.Is(msg.Err, ErrNotFound) {
		o.fail(otel.KindResearchError, "delete session", msg.Err)
		o.notify()
		return
	}

	if i := o.sessionIndex(msg.SessionID); i >= 0 {
		o.sessions = append(o.sessions[:i], o.sessions[i+1:]...)
	}
	o.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSessionDelete, SessionID: msg.SessionID})
	if o.current != nil && o.current.ID == msg.SessionID {
		o.clear()
	}
	o.notify()
}

// upsertSession inserts or replaces s in the session list, keeping it
// ordered by CreatedAt.
func (o *Orchestrator) upsertSession(s model.Session) {
	s.Messages = nil
	if i := o.sessionIndex(s.ID); i >= 0 {
		o.sessions[i] = s
	} else {
		o.sessions = append(o.sessions, s)
	}
	model.SortSessions(o.sessions)
}

func indexOfExchange(xs []model.Exchange, id string) int {
	for i := range xs {
		if xs[i].ID == id {
			return i
		}
	}
	return -1
}
