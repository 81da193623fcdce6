package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keyboard shortcuts for the match review flow.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Accept key.Binding
	Skip   key.Binding
	Quit   key.Binding
	Help   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "previous candidate"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "next candidate"),
		),
		Accept: key.NewBinding(
			key.WithKeys("enter", "a"),
			key.WithHelp("enter/a", "link selected entry"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s", "n"),
			key.WithHelp("s/n", "skip receipt"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}
