package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters from lowest to highest
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Colors for sparkline
var (
	sparkNormalColor  = lipgloss.Color("#06B6D4") // Cyan
	sparkOfflineColor = lipgloss.Color("#EF4444") // Red
)

// Sparkline draws the last width player counts, scaled from zero to the
// peak in view. Negative values mark checks where the server was offline.
func Sparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat(" ", width)
	}

	// Take last 'width' values
	if len(values) > width {
		values = values[len(values)-width:]
	}

	peak := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}

	normalStyle := lipgloss.NewStyle().Foreground(sparkNormalColor)
	offlineStyle := lipgloss.NewStyle().Foreground(sparkOfflineColor)

	var result strings.Builder
	for _, v := range values {
		if v < 0 {
			result.WriteString(offlineStyle.Render("×"))
			continue
		}
		idx := 0
		if peak > 0 {
			idx = int(v / peak * float64(len(sparkBlocks)-1))
		}
		if idx >= len(sparkBlocks) {
			idx = len(sparkBlocks) - 1
		}
		result.WriteString(normalStyle.Render(string(sparkBlocks[idx])))
	}

	// Pad if needed
	if padding := width - len(values); padding > 0 {
		result.WriteString(strings.Repeat(" ", padding))
	}

	return result.String()
}
