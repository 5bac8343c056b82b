package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the watch view.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	search  key.Binding
	back    key.Binding
	all     key.Binding
	refresh key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear search")),
		all:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all users")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.search, k.refresh, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.search, k.back},
		{k.all, k.refresh, k.quit},
	}
}
