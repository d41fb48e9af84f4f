package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/micromux/micromux/internal/runtimestate"
)

var (
	// Colors (k9s-inspired)
	primaryColor   = lipgloss.Color("#7D56F4") // Purple
	successColor   = lipgloss.Color("#00FF00") // Green
	errorColor     = lipgloss.Color("#FF0000") // Red
	warnColor      = lipgloss.Color("#FFA500") // Orange
	dimColor       = lipgloss.Color("#666666") // Gray
	highlightColor = lipgloss.Color("#00FFFF") // Cyan

	// Text styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	warnStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	highlightStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)

	// Table styles
	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF"))

	tableSelectedStyle = lipgloss.NewStyle().
				Background(primaryColor).
				Foreground(lipgloss.Color("#FFFFFF"))
)

// State formatters

func formatState(state runtimestate.ActualKind) string {
	switch state {
	case runtimestate.Running:
		return successStyle.Render("● Running")
	case runtimestate.Starting:
		return highlightStyle.Render("● Starting")
	case runtimestate.Stopping:
		return warnStyle.Render("● Stopping")
	case runtimestate.Pending:
		return dimStyle.Render("○ Pending")
	case runtimestate.Exited:
		return errorStyle.Render("✗ Exited")
	case runtimestate.Disabled:
		return dimStyle.Render("○ Disabled")
	default:
		return string(state)
	}
}

func formatHealth(h runtimestate.HealthState) string {
	switch h {
	case runtimestate.HealthHealthy:
		return successStyle.Render("✓ healthy")
	case runtimestate.HealthUnhealthy:
		return warnStyle.Render("⚠ unhealthy")
	case runtimestate.HealthUnknown:
		return dimStyle.Render("… unknown")
	default:
		return dimStyle.Render("-")
	}
}

func formatLogLevel(level string) string {
	switch level {
	case "ERROR", "error":
		return errorStyle.Render(level)
	case "WARN", "warn", "WARNING":
		return warnStyle.Render(level)
	case "INFO", "info":
		return successStyle.Render(level)
	case "DEBUG", "debug":
		return dimStyle.Render(level)
	default:
		return level
	}
}
