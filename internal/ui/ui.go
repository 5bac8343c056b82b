package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"yt2mp3/internal/cache"
	"yt2mp3/internal/shared"
)

// Identity exposes the viewer details the watch view needs for delete hints
// and the admin scope toggle.
type Identity interface {
	Username() string
	IsAdmin() bool
}

type refreshedMsg struct {
	err error
}

type tickMsg time.Time

// Model represents the watch view state.
type Model struct {
	ctx       context.Context
	downloads *cache.Cache
	identity  Identity
	interval  time.Duration

	width   int
	height  int
	entries list.Model
	search  textinput.Model
	showAll bool
	err     error
	help    help.Model
	keys    keyMap
}

// NewModel creates a watch model over the given cache. interval controls the
// redraw/refresh cadence and matches the poller interval when zero.
func NewModel(ctx context.Context, downloads *cache.Cache, identity Identity, interval time.Duration) *Model {
	if interval <= 0 {
		interval = 2500 * time.Millisecond
	}

	search := textinput.New()
	search.Placeholder = "filename or owner"
	search.Prompt = "/ "
	search.CharLimit = 80

	entries := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	entries.Title = "Downloads"
	entries.SetShowHelp(false)
	entries.SetFilteringEnabled(false)

	return &Model{
		ctx:       ctx,
		downloads: downloads,
		identity:  identity,
		interval:  interval,
		entries:   entries,
		search:    search,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init starts the refresh loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.entries.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), m.tick())

	case refreshedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, shared.ErrSessionInvalidated) {
				m.err = msg.err
				return m, tea.Quit
			}
			// Transient failures keep the previous snapshot on screen.
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.reloadEntries()
		return m, nil

	case tea.KeyMsg:
		if m.search.Focused() {
			return m.handleSearchKeys(msg)
		}
		return m.handleListKeys(msg)
	}

	var cmd tea.Cmd
	m.entries, cmd = m.entries.Update(msg)
	return m, cmd
}

// View renders the listing, search box and help line.
func (m *Model) View() string {
	header := styles.title.Render(m.title())

	var status string
	if m.err != nil {
		status = styles.err.Render(fmt.Sprintf("refresh failed: %v", m.err))
	}

	helpView := m.help.ShortHelpView(m.keys.ShortHelp())

	return fmt.Sprintf("%s\n%s\n\n%s\n%s\n%s", header, m.search.View(), m.entries.View(), status, helpView)
}

// Err returns the error that terminated the view, if any. The command layer
// reports it after the program exits.
func (m *Model) Err() error {
	return m.err
}

func (m *Model) title() string {
	if m.showAll {
		return "All Downloads"
	}
	return "My Downloads"
}

func (m *Model) scope() cache.Scope {
	if m.showAll {
		return cache.ScopeAll
	}
	return cache.ScopeMine
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.Blur()
		m.search.SetValue("")
		m.downloads.SetSearchTerm("")
		m.reloadEntries()
		return m, nil
	case "enter":
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.downloads.SetSearchTerm(m.search.Value())
	m.reloadEntries()
	return m, cmd
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.search.Focus()
		return m, textinput.Blink
	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.downloads.SetSearchTerm("")
			m.reloadEntries()
		}
		return m, nil
	case "a":
		if m.identity.IsAdmin() {
			m.showAll = !m.showAll
			return m, m.refresh()
		}
		return m, nil
	case "r":
		return m, m.refresh()
	}

	var cmd tea.Cmd
	m.entries, cmd = m.entries.Update(msg)
	return m, cmd
}

func (m *Model) refresh() tea.Cmd {
	scope := m.scope()
	return func() tea.Msg {
		return refreshedMsg{err: m.downloads.Refresh(m.ctx, scope)}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) reloadEntries() {
	view := m.downloads.View()
	items := make([]list.Item, len(view))
	for i, e := range view {
		items[i] = entryItem{entry: e, viewer: m.identity.Username(), isAdmin: m.identity.IsAdmin()}
	}
	m.entries.SetItems(items)
}
