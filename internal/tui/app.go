package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/wellsgz/mcpulse/internal/collector"
	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/ipc"
	"github.com/wellsgz/mcpulse/internal/notify"
)

// Init initializes the model and returns initial commands
func (m Model) Init() tea.Cmd {
	now := m.now()
	cmds := []tea.Cmd{
		waitForResult(m.source.Results()),
		waitForChange(m.source.Changes()),
		fetchHeader(m.source),
		tick(),
	}
	for _, t := range m.targets {
		cmds = append(cmds,
			fetchStats(m.source, t.Config.Name),
			fetchChart(m.source, t.Config.Name, t.Range, now),
		)
	}
	return tea.Batch(cmds...)
}

// Run starts the dashboard in standalone mode, reading from an in-process
// collector. n may be nil when alerts are not wired. The dashboard closes
// when the user quits or ctx is done.
func Run(ctx context.Context, coll *collector.Collector, n *notify.Notifier, cfg *config.Config) error {
	src := NewLocalSource(coll, n, cfg)
	defer src.Close()

	return run(ctx, NewModel(src, cfg.Targets))
}

// RunWithIPC starts the dashboard connected to a daemon via IPC
func RunWithIPC(ctx context.Context, client *ipc.Client) error {
	// Get targets from daemon
	targets, err := client.GetTargets()
	if err != nil {
		return fmt.Errorf("failed to get targets from daemon: %w", err)
	}

	// Subscribe to status results and changes
	if err := client.Subscribe(); err != nil {
		return fmt.Errorf("failed to subscribe to status results: %w", err)
	}

	return run(ctx, NewModel(NewIPCSource(client), targets))
}

func run(ctx context.Context, model Model) error {
	p := tea.NewProgram(
		model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
	)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
