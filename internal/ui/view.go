package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/civic/internal/model"
	"github.com/abelbrown/civic/internal/research"
	"github.com/abelbrown/civic/internal/selection"
)

// chrome is the lines taken by the search bar, the hint line and the
// status bar.
const chrome = 3

// View renders the App.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.debug {
		return lipgloss.JoinVertical(lipgloss.Left,
			debugOverlay(a.d.Ring, a.width, a.height-1),
			debugStatusBar(a.width))
	}

	bodyHeight := a.height - chrome
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	body := a.renderList(a.listWidth(), bodyHeight)
	if a.d.Research.PanelVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, a.renderPanelBox())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderSearchBar(),
		a.renderHintLine(),
		body,
		a.renderStatusBar(),
	)
}

func (a App) listWidth() int {
	if !a.d.Research.PanelVisible() {
		return a.width
	}
	return a.width * 2 / 5
}

// panelSize returns the viewport size inside the panel border.
func (a App) panelSize() (int, int) {
	w := a.width - a.listWidth() - 4
	h := a.height - chrome - 3
	if w < 20 {
		w = 20
	}
	if h < 3 {
		h = 3
	}
	return w, h
}

func (a App) renderSearchBar() string {
	return SearchBar.Width(a.width).Render(a.search.View())
}

// renderHintLine shows completions while typing, recent searches otherwise.
func (a App) renderHintLine() string {
	switch {
	case a.focus == focusSearch && len(a.suggestions) > 0:
		return SuggestionText.Render("tab: " + strings.Join(a.suggestions, " · "))
	case strings.TrimSpace(a.search.Value()) == "" && a.d.History != nil && len(a.d.History.Entries()) > 0:
		return SuggestionText.Render("recent: " + strings.Join(a.d.History.Entries(), " · "))
	}
	return ""
}

func (a App) renderList(width, height int) string {
	if len(a.results) == 0 {
		msg := "No candidates loaded"
		if strings.TrimSpace(a.search.Value()) != "" {
			msg = "No matches"
		}
		return lipgloss.NewStyle().Width(width).Height(height).Render(MetaText.Render("  " + msg))
	}

	start := 0
	if a.cursor >= height {
		start = a.cursor - height + 1
	}
	end := start + height
	if end > len(a.results) {
		end = len(a.results)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, a.renderRow(a.results[i], i == a.cursor, width))
	}
	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (a App) renderRow(e model.Entity, selected bool, width int) string {
	badge := "   "
	if slot := a.d.Selection.Slot(e.ID); slot >= 0 {
		badge = SlotBadge.Render(fmt.Sprintf("[%d]", slot+1))
	}

	meta := strings.Trim(strings.Join([]string{e.Party, e.Position}, " · "), " ·")
	line := truncateRunes(e.Name, width/2)
	if meta != "" {
		line += "  " + MetaText.Render(truncateRunes(meta, width/2-4))
	}

	style := NormalItem
	if selected {
		style = SelectedItem
	}
	return badge + style.Render(line)
}

func (a App) renderPanelBox() string {
	w, _ := a.panelSize()
	content := a.panel.View()
	if a.focus == focusAsk {
		content += "\n" + a.ask.View()
	}
	st := a.d.Research.State()
	if st.Phase == research.ReportLoading {
		content = a.spin.View() + " loading report\n" + content
	}
	return ResearchPanel.Width(w + 2).Render(content)
}

// renderPanel renders the research panel body for st.
func renderPanel(st research.State, width int) string {
	var b strings.Builder

	name := st.EntityName
	if st.Session != nil && st.Session.Entity.Name != "" {
		name = st.Session.Entity.Name
	}
	b.WriteString(PanelHeader.Render(name))
	if st.Role != "" {
		b.WriteString(MetaText.Render("  " + st.Role))
	}
	b.WriteString(MetaText.Render("  [" + st.Tier.String() + "]"))
	b.WriteString("\n")

	if st.Err != nil {
		b.WriteString(ErrorStyle.Render(st.Err.Error()))
		b.WriteString("\n")
	}

	if r := st.Report; r != nil {
		if r.EntityParty != "" {
			b.WriteString(MetaText.Render(r.EntityParty))
			b.WriteString("\n")
		}
		if !r.Freshness.IsFresh && r.Freshness.AgeDays > 0 {
			b.WriteString(MetaText.Render(fmt.Sprintf("report is %d days old", r.Freshness.AgeDays)))
			b.WriteString("\n")
		}
		for _, sec := range []struct{ label, text string }{
			{"Position", r.Position},
			{"Background", r.Background},
			{"Accomplishments", r.Accomplishments},
			{"Criticisms", r.Criticisms},
			{"Summary", r.Summary},
		} {
			if strings.TrimSpace(sec.text) == "" {
				continue
			}
			b.WriteString("\n" + PanelHeader.Render(sec.label) + "\n")
			b.WriteString(lipgloss.NewStyle().Width(width).Render(sec.text))
			b.WriteString("\n")
		}
		if len(r.Sources) > 0 {
			b.WriteString("\n" + PanelHeader.Render("Sources") + "\n")
			for _, s := range r.Sources {
				b.WriteString(MetaText.Render("- " + s.Title + " " + s.URL))
				b.WriteString("\n")
			}
		}
	}

	if st.Session != nil && len(st.Session.Messages) > 0 {
		b.WriteString("\n" + PanelHeader.Render("Conversation") + "\n")
		for _, x := range st.Session.Messages {
			b.WriteString(QuestionText.Render("Q: " + x.Question))
			b.WriteString("\n")
			if x.Pending() {
				b.WriteString(PendingText.Render("waiting for an answer..."))
			} else {
				b.WriteString(lipgloss.NewStyle().Width(width).Render(x.Answer))
			}
			b.WriteString("\n")
		}
	}

	if st.Tier == research.Persisted && len(st.Sessions) > 1 {
		b.WriteString("\n" + MetaText.Render(fmt.Sprintf("%d saved sessions, [ and ] to switch", len(st.Sessions))))
	}
	return b.String()
}

func (a App) renderStatusBar() string {
	mode := a.d.Selection.Mode()
	capacity := "∞"
	if c := mode.Capacity(); c != selection.Unlimited {
		capacity = fmt.Sprintf("%d", c)
	}

	left := fmt.Sprintf("  %s %d/%s  %d shown", mode, a.d.Selection.Len(), capacity, len(a.results))
	if a.d.Token == "" {
		left += "  guest"
	}

	var right string
	switch {
	case a.err != nil:
		right = ErrorStyle.Render(truncateRunes(a.err.Error(), 60))
	case a.focus == focusSearch:
		right = StatusBarKey.Render("enter") + StatusBarText.Render(":done ") + StatusBarKey.Render("esc") + StatusBarText.Render(":back")
	case a.focus == focusAsk:
		right = StatusBarKey.Render("enter") + StatusBarText.Render(":send ") + StatusBarKey.Render("esc") + StatusBarText.Render(":back")
	default:
		right = hints(keys.Search, keys.Toggle, keys.Open, keys.Mode, keys.Ask, keys.Refresh, keys.Clear, keys.NextSession, keys.Delete, keys.Quit)
	}

	return StatusBar.Width(a.width).Render(left + "  " + right)
}

// truncateRunes cuts s to at most n runes, adding an ellipsis when cut.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
