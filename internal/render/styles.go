package render

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	frame    lipgloss.Style
	block    lipgloss.Style
	time     lipgloss.Style
	lane     lipgloss.Style
	gate     lipgloss.Style
	delay    lipgloss.Style
	measure  lipgloss.Style
	barrier  lipgloss.Style
	nested   lipgloss.Style
	cond     lipgloss.Style
	subtitle lipgloss.Style
}

func colorStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff9e64")),
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")).
			Padding(0, 1),
		block: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7aa2f7")),
		time: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89")),
		lane: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dcfff")),
		gate: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#73daca")),
		delay: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89")),
		measure: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")),
		barrier: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bb9af7")),
		nested: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff9e64")),
		cond: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")).
			Italic(true),
		subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bb9af7")),
	}
}

// plainStyles has no properties set, so Render returns its input.
func plainStyles() styles {
	p := lipgloss.NewStyle()
	return styles{
		title: p, frame: p, block: p, time: p, lane: p, gate: p,
		delay: p, measure: p, barrier: p, nested: p, cond: p, subtitle: p,
	}
}
