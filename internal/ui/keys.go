package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the list-focus bindings. Text inputs only honor Back, Accept
// and ForceQuit; everything else is typed into the input.
type keyMap struct {
	ForceQuit   key.Binding
	Quit        key.Binding
	Search      key.Binding
	Ask         key.Binding
	Up          key.Binding
	Down        key.Binding
	Toggle      key.Binding
	Open        key.Binding
	Mode        key.Binding
	Refresh     key.Binding
	Clear       key.Binding
	NextSession key.Binding
	PrevSession key.Binding
	Delete      key.Binding
	Debug       key.Binding
	Back        key.Binding
	Accept      key.Binding
	Complete    key.Binding
}

var keys = keyMap{
	ForceQuit:   key.NewBinding(key.WithKeys("ctrl+c")),
	Quit:        key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Ask:         key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "ask")),
	Up:          key.NewBinding(key.WithKeys("k", "up")),
	Down:        key.NewBinding(key.WithKeys("j", "down")),
	Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "research")),
	Mode:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mode")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Clear:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close")),
	NextSession: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next session")),
	PrevSession: key.NewBinding(key.WithKeys("[")),
	Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Debug:       key.NewBinding(key.WithKeys("D")),
	Back:        key.NewBinding(key.WithKeys("esc")),
	Accept:      key.NewBinding(key.WithKeys("enter")),
	Complete:    key.NewBinding(key.WithKeys("tab")),
}

// hints renders the bindings shown in the status bar.
func hints(bs ...key.Binding) string {
	var out string
	for _, b := range bs {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		out += StatusBarKey.Render(h.Key) + StatusBarText.Render(":"+h.Desc+" ")
	}
	return out
}
