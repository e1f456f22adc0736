package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/civic/internal/api"
	"github.com/abelbrown/civic/internal/history"
	"github.com/abelbrown/civic/internal/model"
	"github.com/abelbrown/civic/internal/otel"
	"github.com/abelbrown/civic/internal/store"
)

type stubEntities struct {
	list []model.Entity
	err  error
}

func (s stubEntities) List(context.Context) ([]model.Entity, error) {
	return s.list, s.err
}

var candidates = []model.Entity{
	{ID: "1", Name: "Maria Santos", Party: "Democratic", Position: "Mayor"},
	{ID: "2", Name: "John Smith", Party: "Republican", Position: "Governor"},
	{ID: "3", Name: "Ana Lopez", Party: "Democratic", Position: "City Council"},
	{ID: "3", Name: "Ana Lopez (dup)", Party: "Democratic", Position: "City Council"},
}

func TestRunSearchExplain(t *testing.T) {
	var buf bytes.Buffer

	err := runSearch(context.Background(), &buf, stubEntities{list: candidates}, searchOptions{query: "santos", explain: true, limit: 10})

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `1 of 3 candidates match "santos"`)
	assert.Contains(t, out, "Maria Santos")
	assert.Contains(t, out, "score=")
	assert.Contains(t, out, "name]")
}

func TestRunSearchPartyFilter(t *testing.T) {
	var buf bytes.Buffer

	err := runSearch(context.Background(), &buf, stubEntities{list: candidates}, searchOptions{query: "democratic", parties: []string{"democratic"}})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `2 of 2 candidates match`)
	assert.NotContains(t, buf.String(), "John Smith")
}

func TestRunSearchNoMatchSuggests(t *testing.T) {
	var buf bytes.Buffer

	err := runSearch(context.Background(), &buf, stubEntities{list: candidates}, searchOptions{query: "zzz"})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "0 of 3 candidates")
}

func TestRunSearchServiceError(t *testing.T) {
	err := runSearch(context.Background(), &bytes.Buffer{}, stubEntities{err: api.ErrUnauthorized}, searchOptions{query: "x"})

	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

type stubReports struct {
	report *model.Report
	err    error
}

func (s stubReports) ByEntityAndRole(context.Context, string, string) (*model.Report, error) {
	return s.report, s.err
}

func TestRunReport(t *testing.T) {
	var buf bytes.Buffer
	r := &model.Report{ID: "r1", Position: "Housing first.", Summary: "Pragmatic.", Freshness: model.Freshness{IsFresh: true}}

	require.NoError(t, runReport(context.Background(), &buf, stubReports{report: r}, reportOptions{name: "Maria Santos", role: "mayor"}))

	out := buf.String()
	assert.Contains(t, out, "Maria Santos (mayor)  report r1")
	assert.Contains(t, out, "== Position ==\nHousing first.")
	assert.NotContains(t, out, "Background")
	assert.NotContains(t, out, "stale")
}

func TestRunReportNotFound(t *testing.T) {
	err := runReport(context.Background(), &bytes.Buffer{}, stubReports{err: api.ErrNotFound}, reportOptions{name: "Nobody", role: "mayor"})

	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestReportMarkdown(t *testing.T) {
	r := &model.Report{
		Position:    "Housing first.",
		EntityParty: "Democratic",
		Freshness:   model.Freshness{AgeDays: 40},
		Sources:     []model.Source{{Title: "City record", URL: "https://example.org/r"}},
	}

	md := reportMarkdown(r, "Maria Santos", "mayor")

	assert.True(t, strings.HasPrefix(md, "# Maria Santos\n\n*mayor* · Democratic\n"))
	assert.Contains(t, md, "> This report is 40 days old.")
	assert.Contains(t, md, "## Position\n\nHousing first.\n")
	assert.NotContains(t, md, "## Summary")
	assert.Contains(t, md, "- [City record](https://example.org/r)")
}

func TestRunReportMarkdownRenders(t *testing.T) {
	var buf bytes.Buffer
	r := &model.Report{ID: "r1", Position: "Housing first.", Freshness: model.Freshness{IsFresh: true}}

	err := runReport(context.Background(), &buf, stubReports{report: r},
		reportOptions{name: "Maria Santos", role: "mayor", markdown: true, style: "notty", width: 60})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Maria Santos")
	assert.Contains(t, buf.String(), "Housing first.")
	assert.NotContains(t, buf.String(), "== Position ==")
}

func TestRunHistory(t *testing.T) {
	s, err := store.Open(store.Memory)
	require.NoError(t, err)
	defer s.Close()

	h := history.New(s)
	require.NoError(t, h.Add("mayor"))
	require.NoError(t, h.Add("santos"))

	var buf bytes.Buffer
	require.NoError(t, runHistory(&buf, history.New(s), false))
	assert.Equal(t, " 1. santos\n 2. mayor\n", buf.String())

	buf.Reset()
	require.NoError(t, runHistory(&buf, history.New(s), true))
	assert.Equal(t, "search history cleared\n", buf.String())

	buf.Reset()
	require.NoError(t, runHistory(&buf, history.New(s), false))
	assert.Equal(t, "no recent searches\n", buf.String())
}

func eventLog(t *testing.T, events ...otel.Event) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	l := otel.NewLogger(&buf)
	for _, e := range events {
		l.Emit(e)
	}
	l.Close()
	buf.WriteString("not json\n")
	return &buf
}

func TestRunEventsFiltersAndTails(t *testing.T) {
	log := eventLog(t,
		otel.Event{Kind: otel.KindSessionStart, Level: otel.LevelInfo, Comp: "research", Tier: "ephemeral"},
		otel.Event{Kind: otel.KindStale, Level: otel.LevelDebug, Comp: "research", Epoch: 3},
		otel.Event{Kind: otel.KindEntityRefresh, Level: otel.LevelInfo, Comp: "coord", Count: 12},
		otel.Event{Kind: otel.KindResearchError, Level: otel.LevelWarn, Comp: "research", Err: "HTTP 503"},
	)

	var out bytes.Buffer
	err := runEvents(context.Background(), &out, log, eventsOptions{
		tail:   1,
		filter: otel.Filter{KindPrefix: "research.", MinLevel: otel.LevelInfo},
	})

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "research.error")
	assert.Contains(t, lines[0], "err=HTTP 503")
	assert.Equal(t, "(1 malformed lines skipped)", lines[1])
}

func TestRunEventsRawJSON(t *testing.T) {
	log := eventLog(t, otel.Event{Kind: otel.KindEntityRefresh, Level: otel.LevelInfo, Count: 2})

	var out bytes.Buffer
	require.NoError(t, runEvents(context.Background(), &out, log, eventsOptions{tail: 10, rawJSON: true}))

	assert.Contains(t, out.String(), `"kind":"entity.refresh"`)
	assert.NotContains(t, out.String(), "malformed")
}

func TestRunEventsFollowStopsOnCancel(t *testing.T) {
	log := eventLog(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := runEvents(ctx, &bytes.Buffer{}, log, eventsOptions{tail: 5, follow: true})

	assert.NoError(t, err)
	assert.True(t, errors.Is(ctx.Err(), context.DeadlineExceeded))
}

// syncBuffer is a bytes.Buffer safe to read while runEvents writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunEventsFollowsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "civic.events.jsonl")
	require.NoError(t, os.WriteFile(path, eventLog(t, otel.Event{Kind: otel.KindStartup, Level: otel.LevelInfo}).Bytes(), 0644))

	wake, stop, err := watchFile(path)
	require.NoError(t, err)
	defer stop()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- runEvents(ctx, out, f, eventsOptions{tail: 10, follow: true, wake: wake})
	}()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "sys.startup") }, 2*time.Second, 10*time.Millisecond)

	appender, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	l := otel.NewLogger(appender)
	l.Emit(otel.Event{Kind: otel.KindSearchQuery, Level: otel.LevelInfo, Query: "santos"})
	l.Close()
	require.NoError(t, appender.Close())

	assert.Eventually(t, func() bool { return strings.Contains(out.String(), `q="santos"`) }, 3*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestFormatEvent(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	e := otel.Event{
		Time:      time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC),
		Level:     otel.LevelInfo,
		Kind:      otel.KindReportFetch,
		Comp:      "research",
		DurMs:     12.5,
		SessionID: "0123456789abcdef",
		Query:     "Maria Santos",
	}

	got := formatEvent(e, false)

	assert.True(t, strings.HasPrefix(got, "14:05:09.000 INFO  [research]"))
	assert.Contains(t, got, "(12.5ms)")
	assert.Contains(t, got, "session=012345678...")
	assert.Contains(t, got, `q="Maria Santos"`)
}

func TestFormatEventColorsLevel(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = noColor })

	warn := formatEvent(otel.Event{Level: otel.LevelWarn, Kind: otel.KindEntityError}, false)
	info := formatEvent(otel.Event{Level: otel.LevelInfo, Kind: otel.KindEntityRefresh}, false)

	assert.Contains(t, warn, "\x1b[33mWARN ")
	assert.NotContains(t, info, "\x1b[")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Peña N...", truncate("Peña Nieto Jr", 9))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
