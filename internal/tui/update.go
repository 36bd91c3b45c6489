package tui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/wellsgz/mcpulse/internal/notify"
	"github.com/wellsgz/mcpulse/internal/probe"
	"github.com/wellsgz/mcpulse/internal/storage"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

// tickInterval is how often the header is refreshed
const tickInterval = time.Second

var errFeedClosed = errors.New("status feed closed")

// Message types
type (
	// ResultMsg is sent when a status result is received
	ResultMsg probe.Result

	// ChangeMsg is sent when a server goes online or offline
	ChangeMsg notify.Event

	// TickMsg is sent periodically for refresh
	TickMsg struct{}

	// ErrMsg is sent when an error occurs
	ErrMsg struct{ Err error }

	// StatsMsg carries the current stats of a server
	StatsMsg struct {
		Target string
		Stats  *storage.Stats
		Err    error
	}

	// ChartMsg carries a freshly computed uptime chart
	ChartMsg struct {
		Target string
		Range  uptime.Range
		Chart  uptime.Chart
		Err    error
	}

	// HeaderMsg carries the dashboard header state
	HeaderMsg struct {
		Header Header
		Err    error
	}

	// RefreshMsg reports the outcome of a manual refresh
	RefreshMsg struct{ Err error }

	// NotificationsMsg reports the alert switch after a toggle
	NotificationsMsg struct {
		Enabled bool
		Err     error
	}

	// feedClosedMsg is sent when the result or change feed ends
	feedClosedMsg struct{}
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case ResultMsg:
		result := probe.Result(msg)
		cmds := []tea.Cmd{waitForResult(m.source.Results())}
		if i := m.findTarget(result.Target); i >= 0 && m.applyResult(result) {
			t := m.targets[i]
			cmds = append(cmds,
				fetchStats(m.source, t.Config.Name),
				fetchChart(m.source, t.Config.Name, t.Range, m.now()),
			)
		}
		return m, tea.Batch(cmds...)

	case ChangeMsg:
		ev := notify.Event(msg)
		m.lastEvent = &ev
		return m, waitForChange(m.source.Changes())

	case StatsMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		if i := m.findTarget(msg.Target); i >= 0 {
			m.targets[i].Stats = msg.Stats
		}
		return m, nil

	case ChartMsg:
		return m.handleChart(msg), nil

	case HeaderMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.header = msg.Header
		return m, nil

	case RefreshMsg:
		m.err = msg.Err
		if msg.Err == nil {
			m.header.Refreshing = true
		}
		return m, nil

	case NotificationsMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.header.Notifications = msg.Enabled
		return m, nil

	case TickMsg:
		return m, tea.Batch(fetchHeader(m.source), tick())

	case feedClosedMsg:
		m.err = errFeedClosed
		return m, nil

	case ErrMsg:
		m.err = msg.Err
		return m, nil
	}

	return m, nil
}

// handleChart stores a chart if it is still for the server's selected range
func (m Model) handleChart(msg ChartMsg) Model {
	i := m.findTarget(msg.Target)
	if i < 0 || msg.Range != m.targets[i].Range {
		return m
	}

	m.targets[i].Loading = false
	if msg.Err != nil {
		m.err = msg.Err
		return m
	}
	chart := msg.Chart
	m.targets[i].Chart = &chart
	return m
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		return m, refresh(m.source)

	case "n":
		return m, setNotifications(m.source, !m.header.Notifications)
	}

	switch m.currentView {
	case ListView:
		return m.handleListViewKeys(msg)
	case DetailView:
		return m.handleDetailViewKeys(msg)
	}
	return m, nil
}

// handleListViewKeys handles keys in list view
func (m Model) handleListViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedIdx > 0 {
			m.selectedIdx--
		}

	case "down", "j":
		if m.selectedIdx < len(m.targets)-1 {
			m.selectedIdx++
		}

	case "enter", " ":
		if target := m.SelectedTarget(); target != nil {
			m.currentView = DetailView
			return m, fetchChart(m.source, target.Config.Name, target.Range, m.now())
		}

	case "home":
		m.selectedIdx = 0

	case "end":
		m.selectedIdx = len(m.targets) - 1
	}

	return m, nil
}

// handleDetailViewKeys handles keys in detail view
func (m Model) handleDetailViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.currentView = ListView

	case "up", "k":
		if m.selectedIdx > 0 {
			m.selectedIdx--
			return m, m.reloadSelected()
		}

	case "down", "j":
		if m.selectedIdx < len(m.targets)-1 {
			m.selectedIdx++
			return m, m.reloadSelected()
		}

	case "1", "2", "3", "4":
		ranges := uptime.Ranges()
		return m.setRange(ranges[msg.String()[0]-'1'])

	case "tab":
		if target := m.SelectedTarget(); target != nil {
			return m.setRange(target.Range.Next())
		}
	}

	return m, nil
}

// setRange selects a range for the current server and recomputes its chart
func (m Model) setRange(r uptime.Range) (tea.Model, tea.Cmd) {
	target := m.SelectedTarget()
	if target == nil {
		return m, nil
	}
	target.Range = r
	target.Loading = true
	return m, fetchChart(m.source, target.Config.Name, r, m.now())
}

// reloadSelected recomputes the chart of the newly selected server
func (m Model) reloadSelected() tea.Cmd {
	target := m.SelectedTarget()
	if target == nil {
		return nil
	}
	return fetchChart(m.source, target.Config.Name, target.Range, m.now())
}

// waitForResult creates a command that waits for a status result
func waitForResult(ch <-chan probe.Result) tea.Cmd {
	return func() tea.Msg {
		result, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return ResultMsg(result)
	}
}

// waitForChange creates a command that waits for a status change
func waitForChange(ch <-chan notify.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return ChangeMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func fetchStats(src Source, target string) tea.Cmd {
	return func() tea.Msg {
		stats, err := src.Stats(target)
		return StatsMsg{Target: target, Stats: stats, Err: err}
	}
}

// fetchChart computes the chart against the instant the command was built,
// so a range switch and the chart it triggers share one reference time
func fetchChart(src Source, target string, r uptime.Range, now time.Time) tea.Cmd {
	return func() tea.Msg {
		chart, err := src.Chart(target, r, now)
		return ChartMsg{Target: target, Range: r, Chart: chart, Err: err}
	}
}

func fetchHeader(src Source) tea.Cmd {
	return func() tea.Msg {
		h, err := src.Status()
		return HeaderMsg{Header: h, Err: err}
	}
}

func refresh(src Source) tea.Cmd {
	return func() tea.Msg {
		return RefreshMsg{Err: src.Refresh()}
	}
}

func setNotifications(src Source, enabled bool) tea.Cmd {
	return func() tea.Msg {
		got, err := src.SetNotifications(enabled)
		return NotificationsMsg{Enabled: got, Err: err}
	}
}
