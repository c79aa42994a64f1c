package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Reset   key.Binding
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Help    key.Binding
	Quit    key.Binding
}

var DefaultKeyMap = KeyMap{
	ZoomIn: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "zoom in"),
	),
	ZoomOut: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "zoom out"),
	),
	Reset: key.NewBinding(
		key.WithKeys("0", "r"),
		key.WithHelp("0", "reset"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "pan up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "pan down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "pan left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "pan right"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.Reset, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ZoomIn, k.ZoomOut, k.Reset},
		{k.Up, k.Down, k.Left, k.Right},
		{k.Help, k.Quit},
	}
}
