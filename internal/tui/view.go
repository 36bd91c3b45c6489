package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wellsgz/mcpulse/internal/tui/components"
	"github.com/wellsgz/mcpulse/internal/uptime"
)

// maxChartWidth caps the uptime bar at two columns per bucket
const maxChartWidth = 2 * uptime.DefaultBucketCount

// View renders the current view
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.currentView {
	case DetailView:
		return m.renderDetailView()
	default:
		return m.renderListView()
	}
}

// renderListView renders the main list view
func (m Model) renderListView() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(m.renderError())
		b.WriteString("\n")
	}

	b.WriteString(m.renderTable())
	b.WriteString("\n\n")
	b.WriteString(m.renderHelp(listKeys))

	return b.String()
}

// renderError renders an error message
func (m Model) renderError() string {
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	return ErrorStyle.Width(width).Render("Error: " + m.err.Error())
}

// renderHeader renders the title bar and the check status line
func (m Model) renderHeader() string {
	title := TitleStyle.Render(" mcpulse ")
	subtitle := SubtitleStyle.Render("Minecraft Server Status")
	badge := HealthBadge(m.header.Status)

	alerts := MutedStyle.Render("alerts off")
	if m.header.Notifications {
		alerts = SuccessStyle.Render("alerts on")
	}

	left := lipgloss.JoinHorizontal(lipgloss.Center, title, subtitle, " ", badge, "  ", alerts)

	var right string
	if m.header.Address != "" {
		right = MutedStyle.Render("API: " + m.header.Address)
	}

	spacing := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if spacing < 1 {
		spacing = 1
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, left, strings.Repeat(" ", spacing), right))
	b.WriteString("\n")
	b.WriteString(" ")
	b.WriteString(MutedStyle.Render(m.checkLine()))
	b.WriteString("\n")

	if m.lastEvent != nil {
		style := SuccessStyle
		if m.lastEvent.To == uptime.StatusOffline {
			style = DangerStyle
		}
		b.WriteString(" ")
		b.WriteString(style.Render(fmt.Sprintf("%s  %s", m.lastEvent.At.Format("15:04:05"), m.lastEvent.Message())))
		b.WriteString("\n")
	}

	return b.String()
}

// checkLine describes when the servers were last checked
func (m Model) checkLine() string {
	var parts []string
	switch {
	case m.header.Refreshing:
		parts = append(parts, "Checking now...")
	case m.header.LastChecked.IsZero():
		parts = append(parts, "Waiting for first check")
	default:
		parts = append(parts, "Last checked "+m.header.LastChecked.Local().Format("15:04:05"))
	}
	if m.header.Interval > 0 {
		parts = append(parts, "auto-updates every "+m.header.Interval.String())
	}
	return strings.Join(parts, " - ")
}

// renderTable renders the server list
func (m Model) renderTable() string {
	columns := components.AdaptiveColumns(m.width)
	table := components.NewTable(columns)

	rows := []string{table.RenderHeader(), table.RenderSeparator()}
	for i, target := range m.targets {
		row := m.renderTargetRow(target, columns)
		rows = append(rows, table.RenderRow(row, i == m.selectedIdx))
	}

	return strings.Join(rows, "\n")
}

// renderTargetRow renders a single server row
func (m Model) renderTargetRow(target TargetState, columns []components.Column) []string {
	name := target.Config.Name
	if limit := columns[components.ColName].Width; len(name) > limit {
		name = name[:limit-1] + "…"
	}

	status := MutedStyle.Render("checking")
	latency := FormatLatency(-1)
	if target.Stats != nil {
		status = FormatStatus(target.Stats.Status)
		latency = FormatLatency(target.Stats.LatencyMs)
	}

	return []string{
		components.ColName:    name,
		components.ColStatus:  status,
		components.ColPlayers: FormatPlayers(target.Stats),
		components.ColLatency: latency,
		components.ColUptime:  FormatUptime(target.Chart),
		components.ColHistory: components.Sparkline(target.History, columns[components.ColHistory].Width),
	}
}

// renderDetailView renders the uptime chart of the selected server
func (m Model) renderDetailView() string {
	target := m.SelectedTarget()
	if target == nil {
		return "No server selected"
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	address := target.Config.Host
	if target.Config.Port > 0 {
		address = fmt.Sprintf("%s:%d", target.Config.Host, target.Config.Port)
	}
	b.WriteString(TitleStyle.Render(fmt.Sprintf(" %s (%s) - %s ",
		target.Config.Name, address, strings.ToUpper(target.Config.Probe))))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(m.renderError())
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderServerStatus(target))
	b.WriteString("\n")

	chart := m.renderChart(target)
	if panel := m.renderCommunity(); panel != "" {
		chart = lipgloss.JoinHorizontal(lipgloss.Top, chart, "  ", panel)
	}
	b.WriteString(chart)
	b.WriteString("\n\n")

	b.WriteString(m.renderHelp(detailKeys))

	return b.String()
}

// renderServerStatus renders the live status line of a server
func (m Model) renderServerStatus(target *TargetState) string {
	stats := target.Stats
	if stats == nil {
		return MutedStyle.Render("  Waiting for first check...") + "\n"
	}

	label := MutedStyle.Width(10)
	var b strings.Builder

	b.WriteString("  ")
	b.WriteString(label.Render("Status:"))
	b.WriteString(FormatStatus(stats.Status))
	b.WriteString("  ")
	b.WriteString(label.Render("Players:"))
	b.WriteString(FormatPlayers(stats))
	b.WriteString("  ")
	b.WriteString(label.Render("Ping:"))
	b.WriteString(FormatLatency(stats.LatencyMs))
	b.WriteString("\n")

	if stats.Version != "" || stats.MOTD != "" {
		b.WriteString("  ")
		b.WriteString(label.Render("Version:"))
		b.WriteString(stats.Version)
		if stats.MOTD != "" {
			b.WriteString("  ")
			b.WriteString(MutedStyle.Render(stats.MOTD))
		}
		b.WriteString("\n")
	}

	if stats.SampleCount > 0 {
		b.WriteString("  ")
		b.WriteString(label.Render("Peak:"))
		b.WriteString(fmt.Sprintf("%d players", stats.PeakPlayers))
		b.WriteString("  ")
		b.WriteString(label.Render("Average:"))
		b.WriteString(fmt.Sprintf("%.1f players", stats.AvgPlayers))
		b.WriteString("\n")
	}

	return b.String()
}

// chartWidth returns the columns available to the uptime bar
func (m Model) chartWidth() int {
	width := m.width - 4
	if m.header.Community.InviteURL != "" {
		width -= 36
	}
	if width > maxChartWidth {
		width = maxChartWidth
	}
	if width < uptime.DefaultBucketCount {
		width = uptime.DefaultBucketCount
	}
	return width
}

// renderChart renders the range tabs, the uptime bar and its summary
func (m Model) renderChart(target *TargetState) string {
	var b strings.Builder

	b.WriteString(SectionStyle.Render("Uptime"))
	b.WriteString("  ")
	b.WriteString(m.renderRangeTabs(target.Range))
	b.WriteString("\n")

	if target.Chart == nil {
		b.WriteString(MutedStyle.Italic(true).Render("Loading..."))
		b.WriteString("\n")
		return b.String()
	}

	chart := target.Chart
	cell := components.BarCellWidth(len(chart.Buckets), m.chartWidth())
	barWidth := cell * len(chart.Buckets)
	start, end := chart.Range.Labels()

	b.WriteString(components.UptimeBar(chart.Buckets, barWidth))
	b.WriteString("\n")
	b.WriteString(components.BarLabels(start, end, barWidth))
	b.WriteString("\n\n")

	b.WriteString(GradeStyle(chart.Grade()).Bold(true).Render(chart.Uptime + "% uptime"))
	if target.Loading {
		b.WriteString(MutedStyle.Render("  updating..."))
	}
	b.WriteString("\n")
	b.WriteString(components.BarLegend())
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render(fmt.Sprintf("%d data points  %d online  %d offline",
		chart.DataPoints, chart.OnlineBuckets, chart.OfflineBuckets)))

	return b.String()
}

// renderRangeTabs renders the range selector tabs
func (m Model) renderRangeTabs(selected uptime.Range) string {
	selectedStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorText).
		Background(ColorPrimary).
		Padding(0, 1)

	normalStyle := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Padding(0, 1)

	var tabs []string
	for _, r := range uptime.Ranges() {
		if r == selected {
			tabs = append(tabs, selectedStyle.Render(r.String()))
		} else {
			tabs = append(tabs, normalStyle.Render(r.String()))
		}
	}

	return "[" + strings.Join(tabs, "|") + "]"
}

// renderCommunity renders the invite panel, or nothing when no invite is configured
func (m Model) renderCommunity() string {
	community := m.header.Community
	if community.InviteURL == "" {
		return ""
	}

	name := community.Name
	if name == "" {
		name = "Community"
	}

	lines := []string{
		SectionStyle.Render("Join our " + name),
	}
	if community.Description != "" {
		lines = append(lines, lipgloss.NewStyle().Width(30).Render(community.Description))
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(ColorSecondary).Underline(true).Render(community.InviteURL))

	return PanelStyle.Render(strings.Join(lines, "\n"))
}

type helpKey struct {
	key  string
	desc string
}

var (
	listKeys = []helpKey{
		{"↑/↓", "navigate"},
		{"Enter", "uptime"},
		{"r", "refresh"},
		{"n", "alerts"},
		{"q", "quit"},
	}

	detailKeys = []helpKey{
		{"Esc", "back"},
		{"↑/↓", "servers"},
		{"1-4", "range"},
		{"Tab", "cycle"},
		{"r", "refresh"},
		{"n", "alerts"},
		{"q", "quit"},
	}
)

// renderHelp renders the help footer
func (m Model) renderHelp(keys []helpKey) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, HelpKeyStyle.Render(k.key)+HelpStyle.Render(" "+k.desc))
	}
	return HelpStyle.Render(strings.Join(parts, "  "))
}
