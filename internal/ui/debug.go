package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/civic/internal/otel"
)

// debugPanelChrome is the lines DebugPanel adds around its content: two for
// the border and two for vertical padding.
const debugPanelChrome = 4

// statRow is one line of the stats block: a label and the kinds it counts.
type statRow struct {
	label  string
	format string
	kinds  []otel.EventKind
}

var statRows = []statRow{
	{"Entities", "%d refreshes, %d errors", []otel.EventKind{otel.KindEntityRefresh, otel.KindEntityError}},
	{"Searches", "%d queries, %d accepted", []otel.EventKind{otel.KindSearchQuery, otel.KindSearchAccept}},
	{"Sessions", "%d started, %d selected, %d deleted", []otel.EventKind{otel.KindSessionStart, otel.KindSessionSelect, otel.KindSessionDelete}},
	{"Reports", "%d fetched, %d backfilled, %d stale", []otel.EventKind{otel.KindReportFetch, otel.KindBackfill, otel.KindStale}},
	{"Errors", "%d research, %d store", []otel.EventKind{otel.KindResearchError, otel.KindStoreError}},
}

var levelStyles = map[otel.Level]lipgloss.Style{
	otel.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	otel.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}

// debugOverlay renders event counts and the newest events from ring.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	lines := []string{DebugHeaderStyle.Render("Event Stats")}
	for _, row := range statRows {
		args := make([]any, len(row.kinds))
		for i, k := range row.kinds {
			args[i] = stats[k]
		}
		lines = append(lines, fmt.Sprintf("  %-11s %s", row.label+":", fmt.Sprintf(row.format, args...)))
	}
	lines = append(lines,
		fmt.Sprintf("  %-11s %d / %d events", "Buffer:", ring.Len(), ring.Cap()),
		"",
		DebugHeaderStyle.Render("Recent Events"),
	)

	now := time.Now()
	for _, e := range ring.Last(20) {
		lines = append(lines, eventLine(e, now))
	}

	maxLines := max(height-debugPanelChrome, 1)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	panelWidth := max(min(76, width-4), 20)
	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

func eventLine(e otel.Event, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %6s  %-26s", formatAge(now.Sub(e.Time)), e.Kind)
	if e.Msg != "" {
		b.WriteString("  " + truncateRunes(e.Msg, 40))
	}
	if e.Err != "" {
		b.WriteString("  ERR:" + truncateRunes(e.Err, 30))
	}
	if e.Epoch != 0 {
		fmt.Fprintf(&b, "  epoch:%d", e.Epoch)
	}
	if st, ok := levelStyles[e.Level]; ok {
		return st.Render(b.String())
	}
	return b.String()
}

// formatAge renders d compactly. Negative ages, from clock skew, show as 0ms.
func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

func debugStatusBar(width int) string {
	hint := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + hint)
}
