// Package main is the entry point for the mcpulse CLI.
//
// mcpulse watches Minecraft servers and shows their status and uptime in a
// terminal dashboard, a REST/WebSocket API and optional webhook alerts.
//
// Usage:
//
//	mcpulse serve                 # Check servers, serve the API and open the dashboard
//	mcpulse serve --no-tui        # Run headless as a daemon
//	mcpulse tui                   # Open the dashboard of a running daemon
//	mcpulse validate -c cfg.yaml  # Validate configuration
//	mcpulse config init           # Write a sample config
//	mcpulse version               # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wellsgz/mcpulse/internal/api"
	"github.com/wellsgz/mcpulse/internal/config"
	"github.com/wellsgz/mcpulse/internal/logging"
	"github.com/wellsgz/mcpulse/internal/paths"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Persistent flags shared by every subcommand
var (
	configFile string
	logFormat  string
)

// rootCmd is the base command when called without subcommands.
// It just displays help.
var rootCmd = &cobra.Command{
	Use:   "mcpulse",
	Short: "A status and uptime dashboard for Minecraft servers",
	Long: `mcpulse checks Minecraft servers at a fixed interval and shows whether
they are online, how many players are connected and how their uptime looked
over the last 30 minutes, hour, 6 hours or day.

Quick start:
  1. Run: mcpulse config init
  2. Edit the targets in the generated config
  3. Run: mcpulse serve

Without --config the config is read from /etc/mcpulse/config.yaml when
running as root and from ~/.mcpulse/config/config.yaml otherwise.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch f := logging.Format(logFormat); f {
		case logging.FormatText, logging.FormatJSON:
			logging.SetFormat(f)
		default:
			return fmt.Errorf("unknown log format %q (want text or json)", logFormat)
		}
		api.Version = version
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mcpulse %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logging.FormatText), "log format: text or json")

	rootCmd.AddCommand(versionCmd)
}

// resolvePaths returns the default paths with the --config override applied
func resolvePaths() (*paths.Paths, error) {
	p, err := paths.DefaultPaths()
	if err != nil {
		return nil, err
	}
	return p.WithConfigFile(configFile), nil
}

// loadConfig loads and validates the config at p
func loadConfig(p *paths.Paths) (*config.Config, error) {
	if !p.ConfigExists() {
		return nil, fmt.Errorf("config file %s not found (create one with: mcpulse config init)", p.ConfigFile)
	}
	cfg, err := config.Load(p.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
