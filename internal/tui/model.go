package tui

import (
	"time"

	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/notify"
	"github.com/wellsgz/mcpulse/internal/probe"
	"github.com/wellsgz/mcpulse/internal/storage"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

// View represents the current view mode
type View int

const (
	ListView View = iota
	DetailView
)

// historyLength is the number of player counts kept per server for the sparkline
const historyLength = 100

// TargetState holds the display state for a single server
type TargetState struct {
	Config  config.Target
	Stats   *storage.Stats
	History []float64 // player counts, -1 when offline
	Range   uptime.Range
	Chart   *uptime.Chart
	Loading bool
}

// Model is the main TUI model
type Model struct {
	currentView View
	selectedIdx int
	targets     []TargetState

	source    Source
	header    Header
	lastEvent *notify.Event

	width  int
	height int
	ready  bool
	err    error

	now func() time.Time
}

// NewModel creates a dashboard over the given servers
func NewModel(src Source, targetConfigs []config.Target) Model {
	targets := make([]TargetState, len(targetConfigs))
	for i, t := range targetConfigs {
		targets[i] = TargetState{
			Config:  t,
			History: make([]float64, 0, historyLength),
			Range:   uptime.DefaultRange,
			Loading: true,
		}
	}

	return Model{
		currentView: ListView,
		targets:     targets,
		source:      src,
		header:      Header{Status: "checking"},
		now:         time.Now,
	}
}

// SelectedTarget returns the currently selected server
func (m Model) SelectedTarget() *TargetState {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.targets) {
		return &m.targets[m.selectedIdx]
	}
	return nil
}

// findTarget returns the index of the named server, or -1
func (m Model) findTarget(name string) int {
	for i := range m.targets {
		if m.targets[i].Config.Name == name {
			return i
		}
	}
	return -1
}

// applyResult appends the result to the server's player history
func (m *Model) applyResult(result probe.Result) bool {
	i := m.findTarget(result.Target)
	if i < 0 {
		return false
	}

	players := -1.0
	if result.Online {
		players = float64(result.Players)
	}
	m.targets[i].History = append(m.targets[i].History, players)
	if len(m.targets[i].History) > historyLength {
		m.targets[i].History = m.targets[i].History[1:]
	}
	return true
}
