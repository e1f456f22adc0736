package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/civic/internal/history"
	"github.com/abelbrown/civic/internal/model"
	"github.com/abelbrown/civic/internal/otel"
	"github.com/abelbrown/civic/internal/research"
	"github.com/abelbrown/civic/internal/search"
	"github.com/abelbrown/civic/internal/selection"
)

const comp = "ui"

// EntitySource is the read side of the entity snapshot.
type EntitySource interface {
	All() []model.Entity
}

// Deps are the App's collaborators. Research, Selection and Entities are
// required; History, Events and Ring may be nil.
type Deps struct {
	Entities  EntitySource
	Research  *research.Orchestrator
	Selection *selection.Controller
	History   *history.History
	Events    *otel.Logger
	Ring      *otel.RingBuffer

	Token string // credential; empty runs as guest
	Role  string // role used when starting a session
	Limit int    // max result rows, 0 = unlimited
}

type focus int

const (
	focusList focus = iota
	focusSearch
	focusAsk
)

// panelSync collects orchestrator notifications between updates. It is
// shared by every copy of App.
type panelSync struct {
	dirty     bool
	grew      bool
	exchanges int
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT do I/O. Network calls happen in the commands the
// orchestrator returns; their messages come back through Update.
type App struct {
	d     Deps
	sync  *panelSync
	unsub func()

	search textinput.Model
	ask    textinput.Model
	panel  viewport.Model
	spin   spinner.Model

	results     []model.Entity
	suggestions []string
	cursor      int
	focus       focus

	err    error
	width  int
	height int
	ready  bool
	debug  bool
}

// NewApp creates an App and subscribes it to orchestrator changes.
func NewApp(d Deps) App {
	si := textinput.New()
	si.Prompt = "/ "
	si.Placeholder = "search candidates"
	si.CharLimit = 200

	ai := textinput.New()
	ai.Prompt = "? "
	ai.Placeholder = "ask about this candidate"
	ai.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	a := App{
		d:      d,
		sync:   &panelSync{dirty: true},
		search: si,
		ask:    ai,
		panel:  viewport.New(40, 10),
		spin:   sp,
	}

	s := a.sync
	a.unsub = d.Research.Subscribe(func(st research.State) {
		s.dirty = true
		n := 0
		if st.Session != nil {
			n = len(st.Session.Messages)
		}
		if n > s.exchanges {
			s.grew = true
		}
		s.exchanges = n
	})

	a.rerank()
	return a
}

// Close unsubscribes from the orchestrator.
func (a App) Close() {
	if a.unsub != nil {
		a.unsub()
	}
}

// Init starts the spinner and loads persisted sessions.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.d.Research.LoadSessions(a.d.Token))
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		a, cmd = a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.sync.dirty = true

	case EntitiesRefreshed:
		a.err = msg.Err
		a.rerank()

	case SessionsDue:
		cmd = a.d.Research.LoadSessions(a.d.Token)

	case spinner.TickMsg:
		a.spin, cmd = a.spin.Update(msg)

	default:
		if c, ok := a.d.Research.Update(msg); ok {
			cmd = c
		}
	}

	a.syncPanel()
	return a, cmd
}

// handleKeyMsg routes keyboard input by focus.
func (a App) handleKeyMsg(msg tea.KeyMsg) (App, tea.Cmd) {
	if key.Matches(msg, keys.ForceQuit) {
		return a, tea.Quit
	}

	a.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Msg: msg.String()})

	switch a.focus {
	case focusSearch:
		return a.handleSearchKey(msg)
	case focusAsk:
		return a.handleAskKey(msg)
	}
	return a.handleListKey(msg)
}

func (a App) handleSearchKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		a.search.Blur()
		a.focus = focusList
		return a, nil

	case key.Matches(msg, keys.Accept):
		a.acceptQuery()
		a.search.Blur()
		a.focus = focusList
		return a, nil

	case key.Matches(msg, keys.Complete):
		if len(a.suggestions) > 0 {
			a.search.SetValue(a.suggestions[0])
			a.search.CursorEnd()
			a.rerank()
			a.acceptQuery()
		}
		return a, nil
	}

	before := a.search.Value()
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	if a.search.Value() != before {
		a.rerank()
		a.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindSearchQuery, Query: a.search.Value(), Count: len(a.results)})
	}
	return a, cmd
}

// acceptQuery records the query in the recent-search list.
func (a *App) acceptQuery() {
	q := strings.TrimSpace(a.search.Value())
	if q == "" {
		return
	}
	a.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSearchAccept, Query: q, Count: len(a.results)})
	if a.d.History == nil {
		return
	}
	if err := a.d.History.Add(q); err != nil {
		a.err = err
		a.emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindStoreError, Err: err.Error()})
	}
}

func (a App) handleAskKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		a.ask.Blur()
		a.focus = focusList
		return a, nil

	case key.Matches(msg, keys.Accept):
		cmd, _, err := a.d.Research.Ask(a.ask.Value(), a.d.Token)
		if err != nil {
			if !errors.Is(err, research.ErrEmptyQuestion) {
				a.err = err
			}
			return a, nil
		}
		a.ask.Reset()
		return a, cmd
	}

	var cmd tea.Cmd
	a.ask, cmd = a.ask.Update(msg)
	return a, cmd
}

func (a App) handleListKey(msg tea.KeyMsg) (App, tea.Cmd) {
	// Clear any existing error on key press
	a.err = nil

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, keys.Debug):
		a.debug = !a.debug
		return a, nil

	case key.Matches(msg, keys.Search):
		a.focus = focusSearch
		return a, a.search.Focus()

	case key.Matches(msg, keys.Down):
		if a.cursor < len(a.results)-1 {
			a.cursor++
		}
		return a, nil

	case key.Matches(msg, keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case key.Matches(msg, keys.Toggle):
		if e, ok := a.current(); ok {
			a.toggle(e.ID)
		}
		return a, nil

	case key.Matches(msg, keys.Mode):
		a.cycleMode()
		return a, nil

	case key.Matches(msg, keys.Open):
		e, ok := a.current()
		if !ok {
			return a, nil
		}
		if !a.d.Selection.Contains(e.ID) {
			a.toggle(e.ID)
		}
		return a, a.d.Research.StartSession(e.Name, a.d.Role, a.d.Token)

	case key.Matches(msg, keys.Ask):
		if !a.d.Research.PanelVisible() {
			return a, nil
		}
		a.focus = focusAsk
		return a, a.ask.Focus()

	case key.Matches(msg, keys.Refresh):
		return a, a.d.Research.Refresh()

	case key.Matches(msg, keys.Clear):
		a.d.Research.Clear()
		return a, nil

	case key.Matches(msg, keys.NextSession):
		return a, a.stepSession(1)

	case key.Matches(msg, keys.PrevSession):
		return a, a.stepSession(-1)

	case key.Matches(msg, keys.Delete):
		st := a.d.Research.State()
		if st.Tier != research.Persisted || st.Session == nil {
			return a, nil
		}
		return a, a.d.Research.DeleteSession(st.Session.ID, a.d.Token)
	}

	if a.focus == focusList && a.d.Research.PanelVisible() {
		var cmd tea.Cmd
		a.panel, cmd = a.panel.Update(msg)
		return a, cmd
	}
	return a, nil
}

// current returns the entity under the cursor.
func (a App) current() (model.Entity, bool) {
	if a.cursor < 0 || a.cursor >= len(a.results) {
		return model.Entity{}, false
	}
	return a.results[a.cursor], true
}

func (a *App) toggle(id string) {
	ch := a.d.Selection.Toggle(id)
	if !ch.Changed() {
		return
	}
	a.emit(otel.Event{
		Level: otel.LevelDebug,
		Kind:  otel.KindSelectToggle,
		Count: a.d.Selection.Len(),
		Extra: map[string]any{"added": ch.Added, "removed": ch.Removed, "evicted": ch.Evicted},
	})
}

func (a *App) cycleMode() {
	next := (a.d.Selection.Mode() + 1) % (selection.Curate + 1)
	a.d.Selection.SetMode(next)
	a.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSelectMode, Msg: next.String()})
}

// stepSession selects the persisted session dir steps away from the
// current one, wrapping around.
func (a App) stepSession(dir int) tea.Cmd {
	st := a.d.Research.State()
	n := len(st.Sessions)
	if n == 0 {
		return nil
	}

	next := 0
	if dir < 0 {
		next = n - 1
	}
	if st.Session != nil {
		for i, s := range st.Sessions {
			if s.ID == st.Session.ID {
				next = ((i+dir)%n + n) % n
				break
			}
		}
	}
	return a.d.Research.SelectSession(st.Sessions[next].ID, a.d.Token)
}

// rerank recomputes results and suggestions for the current query.
func (a *App) rerank() {
	all := a.d.Entities.All()
	q := a.search.Value()

	res := search.Search(all, q)
	if a.d.Limit > 0 && len(res) > a.d.Limit {
		res = res[:a.d.Limit]
	}
	a.results = res
	a.suggestions = search.Suggest(all, q)

	// Reset cursor if it's out of bounds
	if a.cursor >= len(a.results) {
		a.cursor = len(a.results) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// syncPanel re-renders the research panel after orchestrator changes and
// scrolls to the newest exchange when the conversation grew.
func (a *App) syncPanel() {
	if !a.sync.dirty {
		return
	}
	a.sync.dirty = false

	w, h := a.panelSize()
	a.panel.Width = w
	a.panel.Height = h
	a.panel.SetContent(renderPanel(a.d.Research.State(), w))

	if a.sync.grew {
		a.sync.grew = false
		a.panel.GotoBottom()
	}
}

func (a App) emit(e otel.Event) {
	if a.d.Events == nil {
		return
	}
	e.Comp = comp
	a.d.Events.Emit(e)
}
