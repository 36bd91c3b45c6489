package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wellsgz/mcpulse/internal/config"
)

// configCmd groups the config file helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample config file",
	Long: `Write a sample config file to the default location, or to --config.
An existing file is left untouched.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after defaults are applied. The webhook URL is included.`,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config, data and socket locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolvePaths()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config: %s\ndata:   %s\nsocket: %s\n", p.ConfigFile, p.DataDir, p.SocketPath)
		return nil
	},
}

// validateCmd validates a config file without starting anything
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a configuration file without starting the server.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  mcpulse validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd, validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	p, err := resolvePaths()
	if err != nil {
		return err
	}

	created, err := p.CreateDefaultConfig()
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s\n", p.ConfigFile)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", p.ConfigFile)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	p, err := resolvePaths()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(p)
	if err != nil {
		return err
	}

	out, err := cfg.YAML()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, err := resolvePaths()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(p)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Address:       %s\n", cfg.Server.Address)
	fmt.Fprintf(out, "  Interval:      %s\n", cfg.Global.Interval)
	fmt.Fprintf(out, "  Servers:       %d (%s)\n", len(cfg.Targets), probeSummary(cfg.Targets))
	fmt.Fprintf(out, "  Notifications: %s\n", notificationSummary(cfg.Notifications))

	return nil
}

// probeSummary counts targets per probe type, e.g. "minecraft: 2, tcp: 1"
func probeSummary(targets []config.Target) string {
	counts := make(map[string]int)
	var order []string
	for _, t := range targets {
		if counts[t.Probe] == 0 {
			order = append(order, t.Probe)
		}
		counts[t.Probe]++
	}

	parts := make([]string, len(order))
	for i, probe := range order {
		parts[i] = fmt.Sprintf("%s: %d", probe, counts[probe])
	}
	return strings.Join(parts, ", ")
}

func notificationSummary(n config.NotificationsConfig) string {
	state := "off"
	if n.Enabled {
		state = "on"
	}
	if n.WebhookURL != "" {
		return state + ", webhook configured"
	}
	return state
}
