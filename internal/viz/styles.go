package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles derived from CurrentTheme.
type palette struct {
	header, label, value, muted lipgloss.Style
	running, paused, warn       lipgloss.Style
	key, panel, graph           lipgloss.Style
}

func currentPalette() palette {
	t := CurrentTheme
	return palette{
		header:  lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		label:   lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:   lipgloss.NewStyle().Foreground(t.Text),
		muted:   lipgloss.NewStyle().Foreground(t.Muted),
		running: lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		paused:  lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		warn:    lipgloss.NewStyle().Foreground(t.Error),
		key:     lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(46),
		graph: lipgloss.NewStyle().Foreground(t.Accent).Padding(1, 0),
	}
}

// PowerBar renders p in [-1, 1] as a bar growing left or right of a
// centre mark.
func PowerBar(p float64, half int) string {
	n := int(abs(p)*float64(half) + 0.5)
	if n > half {
		n = half
	}
	left, right := strings.Repeat(" ", half), strings.Repeat(" ", half)
	if p < 0 {
		left = strings.Repeat(" ", half-n) + strings.Repeat("█", n)
	} else {
		right = strings.Repeat("█", n) + strings.Repeat(" ", half-n)
	}
	return left + "│" + right
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
