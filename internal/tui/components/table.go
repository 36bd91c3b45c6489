package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column is one table column
type Column struct {
	Title string
	Width int
	Align lipgloss.Position
}

// Table renders fixed-width rows of pre-formatted cells
type Table struct {
	Columns       []Column
	HeaderStyle   lipgloss.Style
	RowStyle      lipgloss.Style
	SelectedStyle lipgloss.Style
}

var (
	headerColor    = lipgloss.Color("#06B6D4")
	selectedBg     = lipgloss.Color("#374151")
	selectedFg     = lipgloss.Color("#F9FAFB")
	separatorColor = lipgloss.Color("#6B7280")
)

// cellPadding is the horizontal padding on each side of a cell
const cellPadding = 1

// NewTable creates a table with the default styles
func NewTable(columns []Column) *Table {
	cell := lipgloss.NewStyle().Padding(0, cellPadding)
	return &Table{
		Columns:       columns,
		HeaderStyle:   cell.Bold(true).Foreground(headerColor),
		RowStyle:      cell,
		SelectedStyle: cell.Background(selectedBg).Foreground(selectedFg),
	}
}

// RenderHeader renders the column titles
func (t *Table) RenderHeader() string {
	titles := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		titles[i] = col.Title
	}
	return t.render(titles, t.HeaderStyle)
}

// RenderRow renders one row. Cells may already carry colors; values wider
// than their column are left as is.
func (t *Table) RenderRow(values []string, selected bool) string {
	style := t.RowStyle
	if selected {
		style = t.SelectedStyle
	}
	return t.render(values, style)
}

func (t *Table) render(values []string, style lipgloss.Style) string {
	cells := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		var value string
		if i < len(values) {
			value = values[i]
		}
		cells[i] = style.Render(lipgloss.PlaceHorizontal(col.Width, col.Align, value))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

// RenderSeparator renders a rule as wide as the table
func (t *Table) RenderSeparator() string {
	width := 0
	for _, col := range t.Columns {
		width += col.Width + 2*cellPadding
	}
	return lipgloss.NewStyle().Foreground(separatorColor).Render(strings.Repeat("─", width))
}

// Column indexes of the server list
const (
	ColName = iota
	ColStatus
	ColPlayers
	ColLatency
	ColUptime
	ColHistory
)

// Widths of the fixed server list columns
const (
	statusWidth  = 8
	playersWidth = 9
	latencyWidth = 8
	uptimeWidth  = 8

	minNameWidth    = 12
	maxNameWidth    = 20
	minHistoryWidth = 10
)

// AdaptiveColumns returns the server list columns for a terminal width.
// The name column takes a third of the free space within its bounds and
// the player sparkline gets the rest.
func AdaptiveColumns(width int) []Column {
	free := width - statusWidth - playersWidth - latencyWidth - uptimeWidth - (ColHistory+1)*2*cellPadding

	nameWidth := min(max(free/3, minNameWidth), maxNameWidth)
	historyWidth := max(free-nameWidth, minHistoryWidth)

	return []Column{
		ColName:    {Title: "Server", Width: nameWidth, Align: lipgloss.Left},
		ColStatus:  {Title: "Status", Width: statusWidth, Align: lipgloss.Left},
		ColPlayers: {Title: "Players", Width: playersWidth, Align: lipgloss.Right},
		ColLatency: {Title: "Ping", Width: latencyWidth, Align: lipgloss.Right},
		ColUptime:  {Title: "Uptime", Width: uptimeWidth, Align: lipgloss.Right},
		ColHistory: {Title: "Players (recent)", Width: historyWidth, Align: lipgloss.Left},
	}
}
