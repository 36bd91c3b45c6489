package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wellsgz/mcpulse/internal/storage"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Yellow
	ColorDanger    = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorBgLight   = lipgloss.Color("#374151") // Lighter background
	ColorText      = lipgloss.Color("#F9FAFB") // Light text
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Background(ColorPrimary).
			Padding(0, 1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	DangerStyle  = lipgloss.NewStyle().Foreground(ColorDanger)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(0, 1)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	// Community panel next to the chart
	PanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Background(lipgloss.Color("#3F1F1F")).
			Padding(0, 1)

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#111827")).
			Padding(0, 1)
)

// StatusStyle returns the style for a server or bucket status
func StatusStyle(status uptime.Status) lipgloss.Style {
	switch status {
	case uptime.StatusOnline:
		return SuccessStyle
	case uptime.StatusOffline:
		return DangerStyle
	default:
		return MutedStyle
	}
}

// GradeStyle returns the style for an uptime grade
func GradeStyle(g uptime.Grade) lipgloss.Style {
	switch g {
	case uptime.GradeGood:
		return SuccessStyle
	case uptime.GradeWarning:
		return WarningStyle
	default:
		return DangerStyle
	}
}

// HealthBadge renders the overall status shown in the header
func HealthBadge(status string) string {
	var bg lipgloss.Color
	switch status {
	case "online":
		bg = ColorSuccess
	case "offline":
		bg = ColorDanger
	case "degraded":
		bg = ColorWarning
	default:
		bg = ColorMuted
	}
	return badgeStyle.Background(bg).Render(strings.ToUpper(status))
}

// FormatStatus renders a server status with its color
func FormatStatus(status uptime.Status) string {
	return StatusStyle(status).Render(string(status))
}

// FormatLatency formats a latency value with color
func FormatLatency(ms float64) string {
	switch {
	case ms < 0:
		return MutedStyle.Render("--")
	case ms < 1:
		return SuccessStyle.Render("<1ms")
	case ms < 100:
		return SuccessStyle.Render(fmt.Sprintf("%.0fms", ms))
	case ms < 300:
		return WarningStyle.Render(fmt.Sprintf("%.0fms", ms))
	default:
		return DangerStyle.Render(fmt.Sprintf("%.0fms", ms))
	}
}

// FormatPlayers formats the player count of a server
func FormatPlayers(stats *storage.Stats) string {
	if stats == nil || stats.Status != uptime.StatusOnline {
		return MutedStyle.Render("-")
	}
	if stats.MaxPlayers > 0 {
		return fmt.Sprintf("%d/%d", stats.Players, stats.MaxPlayers)
	}
	return fmt.Sprintf("%d", stats.Players)
}

// FormatUptime renders an uptime figure colored by its grade
func FormatUptime(chart *uptime.Chart) string {
	if chart == nil {
		return MutedStyle.Render("...")
	}
	return GradeStyle(chart.Grade()).Render(chart.Uptime + "%")
}
