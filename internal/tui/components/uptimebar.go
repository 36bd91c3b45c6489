package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

const (
	barFull  = "█"
	barEmpty = "▁"
)

var (
	barOnlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	barOfflineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	barUnknownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4B5563"))
	barLabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// BarCellWidth returns how many columns each bucket gets when the chart is
// drawn into width columns. Every bucket gets at least one.
func BarCellWidth(buckets, width int) int {
	if buckets <= 0 || width < buckets {
		return 1
	}
	return width / buckets
}

// UptimeBar renders one bar per bucket, oldest on the left. Online buckets
// are full green bars, offline full red, and buckets without data a short
// muted bar.
func UptimeBar(buckets []uptime.Bucket, width int) string {
	cell := BarCellWidth(len(buckets), width)

	var b strings.Builder
	for _, bucket := range buckets {
		switch bucket.Status {
		case uptime.StatusOnline:
			b.WriteString(barOnlineStyle.Render(strings.Repeat(barFull, cell)))
		case uptime.StatusOffline:
			b.WriteString(barOfflineStyle.Render(strings.Repeat(barFull, cell)))
		default:
			b.WriteString(barUnknownStyle.Render(strings.Repeat(barEmpty, cell)))
		}
	}
	return b.String()
}

// BarLabels renders the start label flush left and the end label flush right
// across width columns
func BarLabels(start, end string, width int) string {
	gap := width - lipgloss.Width(start) - lipgloss.Width(end)
	if gap < 1 {
		gap = 1
	}
	return barLabelStyle.Render(start + strings.Repeat(" ", gap) + end)
}

// BarLegend explains the bar colors
func BarLegend() string {
	return strings.Join([]string{
		barOnlineStyle.Render(barFull) + barLabelStyle.Render(" online"),
		barOfflineStyle.Render(barFull) + barLabelStyle.Render(" offline"),
		barUnknownStyle.Render(barEmpty) + barLabelStyle.Render(" no data"),
	}, "   ")
}
