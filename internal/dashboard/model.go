// Package dashboard is the terminal host for nzmon: a Bubble Tea program that
// polls a monitor.Service on an interval and renders one card per tracked
// server with sparklines from the service history.
package dashboard

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nzmon/nzmon/internal/config"
	"github.com/nzmon/nzmon/internal/monitor"
)

// Source is what the dashboard reads. *monitor.Service implements it.
type Source interface {
	Poll(ctx context.Context) monitor.Snapshot
	Snapshot() monitor.Snapshot
	History() *monitor.History
	Settings() config.Settings
	ConnectionState() string
}

// LayoutMode is the responsive layout picked from the terminal width.
type LayoutMode int

const (
	// LayoutMinimal (< 80 columns): values only, single column.
	LayoutMinimal LayoutMode = iota
	// LayoutCompact (80-120 columns): bars and sparklines, narrow cards.
	LayoutCompact
	// LayoutStandard (120-160 columns): full cards.
	LayoutStandard
	// LayoutWide (160+ columns): full cards, more per row.
	LayoutWide
)

// Width breakpoints
const (
	BreakpointCompact  = 80
	BreakpointStandard = 120
	BreakpointWide     = 160
)

// HeightMinimal is the smallest height that still shows the footer.
const HeightMinimal = 24

// DefaultPollTimeout bounds one poll cycle started by the dashboard.
const DefaultPollTimeout = 30 * time.Second

// Options configures a Model.
type Options struct {
	Interval    time.Duration
	PollTimeout time.Duration
	Now         func() time.Time
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	src         Source
	interval    time.Duration
	pollTimeout time.Duration
	now         func() time.Time

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	snap       monitor.Snapshot
	order      []int // indices into snap.Servers, in display order
	selected   int
	sortOrder  SortOrder
	viewMode   ViewMode
	showHelp   bool
	polling    bool
	quitting   bool
	lastUpdate time.Time
	width      int
	height     int

	detailViewport viewport.Model
	viewportReady  bool
}

// tickMsg signals the next scheduled poll.
type tickMsg time.Time

// snapshotMsg carries the result of a finished poll.
type snapshotMsg struct {
	snap monitor.Snapshot
	at   time.Time
}

// NewModel creates a dashboard over src. The first poll starts from Init.
func NewModel(src Source, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = config.DefaultInterval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"◐", "◓", "◑", "◒"},
		FPS:    time.Second / 8,
	}
	sp.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	m := Model{
		src:         src,
		interval:    opts.Interval,
		pollTimeout: opts.PollTimeout,
		now:         opts.Now,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     sp,
		polling:     true,
	}
	m.applySnapshot(src.Snapshot())
	return m
}

// Init starts the first poll, the tick timer and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), m.tickCmd(), m.spinner.Tick)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		// header and footer take 3 and 2 lines
		vpHeight := m.height - 5
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.viewportReady {
			m.detailViewport = viewport.New(m.width, vpHeight)
			m.detailViewport.YPosition = 3
			m.viewportReady = true
		} else {
			m.detailViewport.Width = m.width
			m.detailViewport.Height = vpHeight
		}
		m.refreshDetail()

	case tickMsg:
		poll := m.startPoll()
		return m, tea.Batch(m.tickCmd(), poll)

	case snapshotMsg:
		m.polling = false
		m.lastUpdate = msg.at
		m.applySnapshot(msg.snap)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.viewMode == ViewDetail && m.viewportReady {
		var cmd tea.Cmd
		m.detailViewport, cmd = m.detailViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	if m.viewMode == ViewDetail {
		return m.renderDetailView()
	}
	return m.renderDashboard()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// pollCmd runs one poll cycle off the update loop.
func (m Model) pollCmd() tea.Cmd {
	src, timeout, now := m.src, m.pollTimeout, m.now
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap := src.Poll(ctx)
		return snapshotMsg{snap: snap, at: now()}
	}
}

// startPoll returns a poll command unless one is already in flight.
func (m *Model) startPoll() tea.Cmd {
	if m.polling {
		return nil
	}
	m.polling = true
	return m.pollCmd()
}

// applySnapshot installs snap, keeping the selected entry selected.
func (m *Model) applySnapshot(snap monitor.Snapshot) {
	resized := len(snap.Servers) != len(m.snap.Servers)
	m.snap = snap
	if resized {
		m.order = make([]int, len(snap.Servers))
		for i := range m.order {
			m.order[i] = i
		}
		m.selected = 0
	}
	m.sortServers()
	m.refreshDetail()
}

// sortServers orders cards by the current sort order. Servers without
// readings go last; ties keep configuration order.
func (m *Model) sortServers() {
	if len(m.order) == 0 {
		return
	}
	current := m.order[m.clampSelected()]

	servers := m.snap.Servers
	metric := func(s monitor.ServerSnapshot) float64 {
		switch m.sortOrder {
		case SortByCPU:
			return s.CPUPercent
		case SortByMemory:
			return s.MemPercent
		case SortByDisk:
			return s.DiskPercent
		case SortByNetwork:
			return s.Rates.Total()
		}
		return 0
	}

	sort.SliceStable(m.order, func(i, j int) bool {
		a, b := servers[m.order[i]], servers[m.order[j]]
		if m.sortOrder == SortByConfig {
			return m.order[i] < m.order[j]
		}
		okA, okB := a.Status == monitor.StatusOK, b.Status == monitor.StatusOK
		if okA != okB {
			return okA
		}
		if ma, mb := metric(a), metric(b); ma != mb {
			return ma > mb
		}
		return m.order[i] < m.order[j]
	})

	for i, idx := range m.order {
		if idx == current {
			m.selected = i
			break
		}
	}
}

func (m Model) clampSelected() int {
	if m.selected < 0 {
		return 0
	}
	if m.selected >= len(m.order) {
		return len(m.order) - 1
	}
	return m.selected
}

// refreshDetail re-renders the detail viewport when it is showing.
func (m *Model) refreshDetail() {
	if m.viewMode != ViewDetail || !m.viewportReady {
		return
	}
	m.detailViewport.SetContent(m.renderDetailContent())
}

// Servers returns the server entries in display order.
func (m Model) Servers() []monitor.ServerSnapshot {
	out := make([]monitor.ServerSnapshot, 0, len(m.order))
	for _, idx := range m.order {
		out = append(out, m.snap.Servers[idx])
	}
	return out
}

// SelectedServer returns the selected entry, if any.
func (m Model) SelectedServer() (monitor.ServerSnapshot, bool) {
	if len(m.order) == 0 {
		return monitor.ServerSnapshot{}, false
	}
	return m.snap.Servers[m.order[m.clampSelected()]], true
}

// OnlineCount returns how many entries hold real readings.
func (m Model) OnlineCount() int {
	n := 0
	for _, s := range m.snap.Servers {
		if s.Status == monitor.StatusOK {
			n++
		}
	}
	return n
}

// SecondsSinceUpdate returns the seconds since the last finished poll.
func (m Model) SecondsSinceUpdate() int {
	if m.lastUpdate.IsZero() {
		return 0
	}
	return int(m.now().Sub(m.lastUpdate).Seconds())
}

// LayoutMode returns the layout for the current terminal width.
func (m Model) LayoutMode() LayoutMode {
	switch {
	case m.width >= BreakpointWide:
		return LayoutWide
	case m.width >= BreakpointStandard:
		return LayoutStandard
	case m.width >= BreakpointCompact:
		return LayoutCompact
	default:
		return LayoutMinimal
	}
}

// ShowFooter reports whether the terminal is tall enough for the footer.
func (m Model) ShowFooter() bool {
	return m.height == 0 || m.height >= HeightMinimal
}
