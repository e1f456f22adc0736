package research

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abelbrown/civic/internal/model"
	"github.com/abelbrown/civic/internal/otel"
)

// Paging defaults for loading a session's exchanges.
const (
	DefaultPageSize     = 50
	DefaultMaxExchanges = 500
)

const comp = "research"

// Deps are the orchestrator's collaborators. Sessions may be nil, in which
// case every session is ephemeral. Entities may be nil, which disables the
// lookup step of backfill.
type Deps struct {
	Sessions SessionService
	Reports  ReportService
	Entities EntityLookup

	Log     *zap.Logger
	Events  *otel.Logger
	Metrics *Metrics

	PageSize     int
	MaxExchanges int

	Now   func() time.Time
	NewID func() string
}

// Orchestrator is the research session state machine. Not safe for
// concurrent use: call it from the goroutine that runs the view.
type Orchestrator struct {
	d      Deps
	ctx    context.Context
	cancel context.CancelFunc

	epoch     uint64
	reportSeq uint64
	listSeq   uint64

	phase     Phase
	tier      Tier
	current   *model.Session
	ephemeral *model.Session
	report    *model.Report
	sessions  []model.Session

	entityName string
	role       string
	err        error

	subs   map[int]func(State)
	nextID int
}

// New returns an idle Orchestrator.
func New(d Deps) *Orchestrator {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics(nil)
	}
	if d.PageSize <= 0 {
		d.PageSize = DefaultPageSize
	}
	if d.MaxExchanges <= 0 {
		d.MaxExchanges = DefaultMaxExchanges
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		d:      d,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[int]func(State)),
	}
}

// Close cancels in-flight commands. Their messages, if any, are ignored.
func (o *Orchestrator) Close() {
	o.cancel()
}

// TierFor is the single capability check: persisted when a credential is
// present and a session service is configured.
func (o *Orchestrator) TierFor(cred string) Tier {
	if cred != "" && o.d.Sessions != nil {
		return Persisted
	}
	return Ephemeral
}

// StartSession starts a session about entityName in role. The current
// report and any guest session are dropped immediately.
func (o *Orchestrator) StartSession(entityName, role, cred string) tea.Cmd {
	entityName = strings.TrimSpace(entityName)
	role = strings.TrimSpace(role)
	if entityName == "" {
		return nil
	}

	tier := o.TierFor(cred)
	o.newIdentity()
	o.ephemeral = nil
	o.tier = tier
	o.entityName, o.role = entityName, role
	o.phase = ReportLoading
	o.d.Metrics.Sessions.WithLabelValues(tier.String()).Inc()
	o.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSessionStart, Tier: tier.String(), Query: entityName, Msg: role})
	o.d.Log.Debug("start session", zap.String("entity", entityName), zap.String("role", role), zap.Stringer("tier", tier))

	if tier == Ephemeral {
		cmd := o.startEphemeral(entityName, role)
		o.notify()
		return cmd
	}

	o.current = nil
	o.notify()

	epoch := o.epoch
	req := model.NewSession{EntityName: entityName, Role: role}
	svc := o.d.Sessions
	ctx := o.ctx
	return func() tea.Msg {
		if ctx.Err() != nil {
			return nil
		}
		s, err := svc.Create(ctx, req, cred)
		return SessionCreated{Epoch: epoch, Req: req, Session: s, Err: err}
	}
}

// startEphemeral replaces the guest session and fetches its report.
func (o *Orchestrator) startEphemeral(entityName, role string) tea.Cmd {
	s := &model.Session{
		ID:        o.d.NewID(),
		Entity:    model.EntityRef{Name: entityName},
		Role:      role,
		CreatedAt: o.d.Now(),
	}
	o.tier = Ephemeral
	o.ephemeral = s
	o.current = s
	return o.fetchByName(entityName, role)
}

// SelectSession makes a listed persisted session current. It is declined
// without a credential, for the guest session, and for unknown ids.
func (o *Orchestrator) SelectSession(id, cred string) tea.Cmd {
	if cred == "" || o.d.Sessions == nil {
		return nil
	}
	if o.ephemeral != nil && o.ephemeral.ID == id {
		return nil
	}
	i := o.sessionIndex(id)
	if i < 0 {
		return nil
	}

	o.newIdentity()
	s := o.sessions[i]
	s.Messages = nil
	o.tier = Persisted
	o.current = &s
	o.entityName, o.role = s.Entity.Name, s.Role
	o.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSessionSelect, SessionID: id, ReportID: s.ReportID})

	cmds := []tea.Cmd{o.loadExchanges(id, cred)}
	if s.ReportID != "" {
		cmds = append(cmds, o.fetchByID(s.ReportID))
		o.phase = ReportLoading
	} else {
		o.phase = Ready
	}
	o.notify()
	return tea.Batch(cmds...)
}

// AppendMessage appends a question to the current persisted session. The
// question shows immediately as a pending exchange and is replaced in place
// when the service answers.
func (o *Orchestrator) AppendMessage(question, cred string) (tea.Cmd, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if !o.hasPersistedCurrent(cred) {
		return nil, ErrNoPersistedSession
	}

	pending := model.Exchange{
		ID:        "tmp-" + o.d.NewID(),
		Question:  question,
		CreatedAt: o.d.Now(),
	}
	o.current.Messages = append(o.current.Messages, pending)
	o.notify()

	epoch := o.epoch
	req := model.NewQuestion{SessionID: o.current.ID, Question: question}
	svc := o.d.Sessions
	ctx := o.ctx
	return func() tea.Msg {
		if ctx.Err() != nil {
			return nil
		}
		x, err := svc.AppendQuestion(ctx, req, cred)
		return ExchangeConfirmed{Epoch: epoch, SessionID: req.SessionID, TempID: pending.ID, Exchange: x, Err: err}
	}, nil
}

func (o *Orchestrator) hasPersistedCurrent(cred string) bool {
	return cred != "" && o.tier == Persisted && o.current != nil && o.d.Sessions != nil
}

// AppendGuestMessage appends a locally answered exchange to the guest
// session. Nothing is sent anywhere.
func (o *Orchestrator) AppendGuestMessage(question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}
	if o.tier != Ephemeral || o.current == nil {
		return ErrNoSession
	}

	o.current.Messages = append(o.current.Messages, model.Exchange{
		ID:        o.d.NewID(),
		Question:  question,
		Answer:    guestAnswer(o.report, question),
		CreatedAt: o.d.Now(),
	})
	o.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindExchange, Tier: Ephemeral.String(), SessionID: o.current.ID})
	o.notify()
	return nil
}

// Ask appends question on the persisted path when possible and falls back
// to the guest path otherwise. It returns the tier that handled it.
func (o *Orchestrator) Ask(question, cred string) (tea.Cmd, Tier, error) {
	if !o.hasPersistedCurrent(cred) {
		return nil, Ephemeral, o.AppendGuestMessage(question)
	}
	cmd, err := o.AppendMessage(question, cred)
	return cmd, Persisted, err
}

// Refresh re-fetches the report for the remembered entity and role. The
// current report stays visible until the new one arrives. A persisted
// session still being created has no canonical name yet, so it is skipped.
func (o *Orchestrator) Refresh() tea.Cmd {
	if o.entityName == "" {
		return nil
	}
	if o.tier == Persisted && o.current == nil {
		return nil
	}
	o.err = nil
	o.phase = ReportLoading
	cmd := o.fetchByName(o.entityName, o.role)
	o.notify()
	return cmd
}

// Clear returns to Idle. The guest session is discarded; persisted sessions
// are only deselected.
func (o *Orchestrator) Clear() {
	o.clear()
	o.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSessionClear, Epoch: o.epoch})
	o.notify()
}

func (o *Orchestrator) clear() {
	o.newIdentity()
	if o.tier == Ephemeral {
		o.ephemeral = nil
	}
	o.current = nil
	o.entityName, o.role = "", ""
	o.phase = Idle
}

// DeleteSession deletes a persisted session on the service, then locally.
func (o *Orchestrator) DeleteSession(id, cred string) tea.Cmd {
	if id == "" || cred == "" || o.d.Sessions == nil {
		return nil
	}
	if o.ephemeral != nil && o.ephemeral.ID == id {
		return nil
	}

	svc := o.d.Sessions
	ctx := o.ctx
	return func() tea.Msg {
		if ctx.Err() != nil {
			return nil
		}
		return SessionDeleted{SessionID: id, Err: svc.Delete(ctx, id, cred)}
	}
}

// LoadSessions lists the caller's persisted sessions.
func (o *Orchestrator) LoadSessions(cred string) tea.Cmd {
	if cred == "" || o.d.Sessions == nil {
		return nil
	}

	o.listSeq++
	seq := o.listSeq
	svc := o.d.Sessions
	ctx := o.ctx
	return func() tea.Msg {
		if ctx.Err() != nil {
			return nil
		}
		list, err := svc.List(ctx, cred)
		return SessionsListed{Seq: seq, Sessions: list, Err: err}
	}
}

// State returns a snapshot.
func (o *Orchestrator) State() State {
	st := State{
		Phase:      o.phase,
		Tier:       o.tier,
		Report:     o.report.Clone(),
		Sessions:   cloneSessions(o.sessions),
		EntityName: o.entityName,
		Role:       o.role,
		Err:        o.err,
	}
	if o.current != nil {
		s := cloneSession(*o.current)
		st.Session = &s
	}
	return st
}

// PanelVisible reports whether the research panel has anything to show.
func (o *Orchestrator) PanelVisible() bool {
	return o.phase != Idle || o.current != nil
}

// Subscribe registers fn to be called with a snapshot after every state
// change. The returned func unregisters it.
func (o *Orchestrator) Subscribe(fn func(State)) (unsubscribe func()) {
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	return func() { delete(o.subs, id) }
}

func (o *Orchestrator) notify() {
	if len(o.subs) == 0 {
		return
	}
	st := o.State()
	for _, fn := range o.subs {
		fn(st)
	}
}

// newIdentity starts a new epoch and drops everything tied to the old one.
func (o *Orchestrator) newIdentity() {
	o.epoch++
	o.report = nil
	o.err = nil
}

func (o *Orchestrator) fetchByName(entityName, role string) tea.Cmd {
	svc := o.d.Reports
	return o.fetchReport(func(ctx context.Context) (*model.Report, error) {
		return svc.ByEntityAndRole(ctx, entityName, role)
	})
}

func (o *Orchestrator) fetchByID(reportID string) tea.Cmd {
	svc := o.d.Reports
	return o.fetchReport(func(ctx context.Context) (*model.Report, error) {
		return svc.ByID(ctx, reportID, true)
	})
}

// fetchReport tags a report fetch with the current epoch and a fresh
// sequence number and runs backfill on the result.
func (o *Orchestrator) fetchReport(get func(context.Context) (*model.Report, error)) tea.Cmd {
	o.reportSeq++
	epoch, seq := o.epoch, o.reportSeq
	meta := metaOf(o.current)
	lookup := o.d.Entities
	ctx := o.ctx
	return func() tea.Msg {
		if ctx.Err() != nil {
			return nil
		}
		r, err := get(ctx)
		if err != nil {
			return ReportFetched{Epoch: epoch, Seq: seq, Err: err}
		}
		if r == nil {
			return ReportFetched{Epoch: epoch, Seq: seq, Err: ErrNotFound}
		}
		src := backfill(ctx, r, meta, lookup)
		return ReportFetched{Epoch: epoch, Seq: seq, Report: r, Backfill: src}
	}
}

// loadExchanges pages through a session's exchanges up to MaxExchanges.
func (o *Orchestrator) loadExchanges(sessionID, cred string) tea.Cmd {
	epoch := o.epoch
	svc := o.d.Sessions
	pageSize, limit := o.d.PageSize, o.d.MaxExchanges
	ctx := o.ctx
	return func() tea.Msg {
		var all []model.Exchange
		for offset := 0; len(all) < limit; {
			if ctx.Err() != nil {
				return nil
			}
			page, err := svc.Exchanges(ctx, sessionID, cred, pageSize, offset)
			if err != nil {
				return ExchangesLoaded{Epoch: epoch, SessionID: sessionID, Err: err}
			}
			all = append(all, page...)
			if len(page) < pageSize {
				break
			}
			offset += len(page)
		}
		if len(all) > limit {
			all = all[:limit]
		}
		return ExchangesLoaded{Epoch: epoch, SessionID: sessionID, Exchanges: all}
	}
}

func (o *Orchestrator) sessionIndex(id string) int {
	for i := range o.sessions {
		if o.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) emit(e otel.Event) {
	if o.d.Events == nil {
		return
	}
	if e.Comp == "" {
		e.Comp = comp
	}
	o.d.Events.Emit(e)
}

func cloneSession(s model.Session) model.Session {
	if s.Messages != nil {
		msgs := make([]model.Exchange, len(s.Messages))
		copy(msgs, s.Messages)
		s.Messages = msgs
	}
	return s
}

func cloneSessions(ss []model.Session) []model.Session {
	out := make([]model.Session, len(ss))
	for i := range ss {
		out[i] = cloneSession(ss[i])
	}
	return out
}
