package dashboard

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// SortOrder defines how server cards are ordered.
type SortOrder int

const (
	SortByConfig SortOrder = iota
	SortByCPU
	SortByMemory
	SortByDisk
	SortByNetwork
	sortOrderCount
)

// String returns a human-readable label for the sort order.
func (s SortOrder) String() string {
	switch s {
	case SortByCPU:
		return "CPU"
	case SortByMemory:
		return "memory"
	case SortByDisk:
		return "disk"
	case SortByNetwork:
		return "network"
	default:
		return "config"
	}
}

// Next cycles to the next sort order.
func (s SortOrder) Next() SortOrder {
	return (s + 1) % sortOrderCount
}

// ViewMode is the current display mode of the dashboard.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// KeyMap holds the dashboard key bindings. It implements help.KeyMap.
type KeyMap struct {
	Quit     key.Binding
	Refresh  key.Binding
	Sort     key.Binding
	Up       key.Binding
	Down     key.Binding
	First    key.Binding
	Last     key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Help     key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
		First:    key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first")),
		Last:     key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "last")),
		Expand:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Collapse: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

// ShortHelp is shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Refresh, k.Sort, k.Up, k.Down, k.Expand, k.Help}
}

// FullHelp is shown in the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.First, k.Last},
		{k.Expand, k.Collapse, k.Sort},
		{k.Refresh, k.Help, k.Quit},
	}
}

// HandleKeyMsg applies a key press. It reports whether the key was handled.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	if key.Matches(msg, m.keys.Help) {
		m.showHelp = !m.showHelp
		return true, nil
	}

	if key.Matches(msg, m.keys.Collapse) {
		switch {
		case m.showHelp:
			m.showHelp = false
		case m.viewMode == ViewDetail:
			m.viewMode = ViewList
		}
		return true, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return true, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		return true, m.startPoll()

	case key.Matches(msg, m.keys.Sort):
		m.sortOrder = m.sortOrder.Next()
		m.sortServers()
		return true, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
			m.refreshDetail()
		}
		return true, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.order)-1 {
			m.selected++
			m.refreshDetail()
		}
		return true, nil

	case key.Matches(msg, m.keys.First):
		m.selected = 0
		m.refreshDetail()
		return true, nil

	case key.Matches(msg, m.keys.Last):
		if len(m.order) > 0 {
			m.selected = len(m.order) - 1
			m.refreshDetail()
		}
		return true, nil

	case key.Matches(msg, m.keys.Expand):
		if m.viewMode == ViewList && len(m.order) > 0 {
			m.viewMode = ViewDetail
			m.refreshDetail()
		}
		return true, nil
	}

	return false, nil
}
