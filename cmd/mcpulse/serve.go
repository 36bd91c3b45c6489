package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wellsgz/mcpulse/internal/api"
	"github.com/wellsgz/mcpulse/internal/collector"
	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/ipc"
	"github.com/wellsgz/mcpulse/internal/logging"
	"github.com/wellsgz/mcpulse/internal/notify"
	"github.com/wellsgz/mcpulse/internal/storage"
	"github.com/wellsgz/mcpulse/internal/tui"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// logFileName receives the logs while the dashboard owns the terminal
const logFileName = "mcpulse.log"

// serveCmd runs the collector with the API, the IPC socket and optionally
// the dashboard
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"daemon"},
	Short:   "Check servers and serve the dashboard",
	Long: `Start checking the configured servers.

The server will:
  - Check every server at the configured interval
  - Store results in memory and in round-robin databases under data_dir
  - Serve the REST and WebSocket API on the configured address
  - Listen on a unix socket for "mcpulse tui" clients
  - Send alerts to the webhook when a server goes offline or comes back
  - Open the dashboard unless --no-tui is given or enable_tui is false

While the dashboard is open, logs are written to data_dir/mcpulse.log.
The server runs until interrupted (Ctrl+C) or receives SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("no-tui", false, "run without the dashboard")
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := resolvePaths()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(p)
	if err != nil {
		return err
	}

	noTUI, _ := cmd.Flags().GetBool("no-tui")
	withTUI := cfg.Server.EnableTUI && !noTUI

	if err := p.EnsureDirectories(); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Global.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if withTUI {
		logFile, err := os.OpenFile(filepath.Join(cfg.Global.DataDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		logging.SetWriter(logFile)
	}

	logging.Info("Main", "Starting mcpulse "+version, map[string]interface{}{
		"targets":  len(cfg.Targets),
		"interval": cfg.Global.Interval.String(),
		"address":  cfg.Server.Address,
		"socket":   p.SocketPath,
	})

	store, err := storage.NewRRDStorage(
		cfg.Global.DataDir,
		cfg.Global.Interval,
		cfg.Storage.Retention,
		cfg.Storage.XFF,
		cfg.Storage.Aggregation,
	)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	mem := storage.NewMemoryBuffer(cfg.Memory.BufferSize)
	coll := collector.NewCollector(cfg, store, mem)

	// Cancelled on SIGINT/SIGTERM or when the dashboard is closed
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier, hook := newNotifier(ctx, cfg)
	if hook != nil {
		// Cancel in-flight alerts and wait for them to return
		defer func() {
			stop()
			hook.Wait()
		}()
	}

	apiServer := api.NewServer(cfg)
	apiServer.Attach(coll, notifier)

	ipcServer := ipc.NewServer(p.SocketPath, cfg)
	ipcServer.SetCollector(coll)
	ipcServer.SetNotifier(notifier)
	if err := ipcServer.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	defer ipcServer.Stop()

	g, ctx := errgroup.WithContext(ctx)

	results := coll.Subscribe()
	g.Go(func() error {
		notifier.Run(ctx, results)
		return nil
	})

	g.Go(func() error {
		return apiServer.Run(ctx, cfg.Server.Address, shutdownTimeout)
	})

	g.Go(func() error {
		coll.Start()
		<-ctx.Done()
		coll.Stop()
		return nil
	})

	if withTUI {
		g.Go(func() error {
			defer stop()
			return tui.Run(ctx, coll, notifier, cfg)
		})
	}

	if err := g.Wait(); err != nil {
		logging.Error("Main", "Shutdown after error", err)
		return err
	}

	logging.Info("Main", "Shutdown complete", nil)
	return nil
}

// newNotifier builds the alert notifier and, when a webhook is configured,
// the webhook sink attached to it. Deliveries are cancelled with ctx.
func newNotifier(ctx context.Context, cfg *config.Config) (*notify.Notifier, *notify.Webhook) {
	n := notify.New(cfg.Notifications.Enabled)
	if cfg.Notifications.WebhookURL == "" {
		return n, nil
	}
	hook := notify.NewWebhook(ctx, cfg.Notifications.WebhookURL)
	n.AddSink(hook)
	return n, hook
}
