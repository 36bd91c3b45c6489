package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wellsgz/mcpulse/internal/ipc"
	"github.com/wellsgz/mcpulse/internal/tui"
)

// tuiCmd attaches the dashboard to a running daemon
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the dashboard of a running daemon",
	Long: `Connect to a daemon started with "mcpulse serve --no-tui" and show its
dashboard. Closing the dashboard leaves the daemon running.

Example:
  mcpulse tui
  mcpulse tui --socket /var/run/mcpulse/mcpulse.sock`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().String("socket", "", "path to the daemon socket (default: per-user location)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	socketPath, _ := cmd.Flags().GetString("socket")
	if socketPath == "" {
		p, err := resolvePaths()
		if err != nil {
			return err
		}
		socketPath = p.SocketPath
	}

	client, err := ipc.Connect(socketPath)
	if err != nil {
		return fmt.Errorf("%w (is \"mcpulse serve\" running?)", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return tui.RunWithIPC(ctx, client)
}
