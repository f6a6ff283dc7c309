package cmd

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings for the application. It satisfies key.Map so
// it can be passed directly to bubbles/help.Model for automatic rendering.
type keyMap struct {
	Tank       key.Binding
	Events     key.Binding
	ForceOpen  key.Binding
	ForceClose key.Binding
	SetMax     key.Binding
	SetMin     key.Binding
	Fetch      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// ShortHelp returns keybindings shown in the mini help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tank, k.Events, k.Fetch, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view (columns).
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tank, k.Events, k.Fetch},
		{k.SetMin, k.SetMax},
		{k.ForceOpen, k.ForceClose},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Tank: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "tank view"),
	),
	Events: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "events view"),
	),
	ForceOpen: key.NewBinding(
		key.WithKeys("O"),
		key.WithHelp("O", "force open + halt"),
	),
	ForceClose: key.NewBinding(
		key.WithKeys("C"),
		key.WithHelp("C", "force close + halt"),
	),
	SetMax: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "set level as 100%"),
	),
	SetMin: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "set level as 0%"),
	),
	Fetch: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "fetch tide now"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more keys"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
