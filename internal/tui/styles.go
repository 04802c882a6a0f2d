package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorText   = lipgloss.Color("#cdd6f4")
	colorMuted  = lipgloss.Color("#a6adc8")
	colorAccent = lipgloss.Color("#74c7ec")
	colorRest   = lipgloss.Color("#fab387")
	colorDone   = lipgloss.Color("#a6e3a1")
	colorBorder = lipgloss.Color("#45475a")

	frameStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Foreground(colorText).
			Padding(1, 2)

	titleStyle    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	exerciseStyle = lipgloss.NewStyle().Bold(true)
	restStyle     = lipgloss.NewStyle().Foreground(colorRest).Bold(true)
	doneStyle     = lipgloss.NewStyle().Foreground(colorDone).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(colorMuted).Width(8)
)
