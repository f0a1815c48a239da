package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	colorAccent = lipgloss.Color("#7C3AED")
	colorOK     = lipgloss.Color("#10B981")
	colorWarn   = lipgloss.Color("#F59E0B")
	colorFail   = lipgloss.Color("#EF4444")
	colorMuted  = lipgloss.Color("#6B7280")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted).Width(24)
	valueStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle   = lipgloss.NewStyle().Foreground(colorFail)
	successStyle = lipgloss.NewStyle().Foreground(colorOK)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarn)

	barFullStyle  = lipgloss.NewStyle().Foreground(colorOK)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

// RenderMetric renders a label and its value on one line
func RenderMetric(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left, labelStyle.Render(label), valueStyle.Render(value))
}

// RenderProgressBar renders a bar of width cells filled to percent (0..1)
func RenderProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	filled = min(max(filled, 0), width)

	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// RenderStatus renders a short status word: ok, warn or fail
func RenderStatus(defects int, failed bool) string {
	switch {
	case failed:
		return errorStyle.Render("fail")
	case defects > 0:
		return warningStyle.Render("warn")
	}
	return successStyle.Render("ok")
}
