package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return dimStyle.Render("shutting down...\n")
	}

	switch m.view {
	case viewHelp:
		return m.helpView()
	case viewLogs:
		return m.logsView()
	default:
		return m.tableView()
	}
}

func (m Model) tableView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("micromux") + dimStyle.Render("  — ? for help, q to quit"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.toast != "" {
		b.WriteString(highlightStyle.Render(m.toast) + "\n")
	}

	b.WriteString(dimStyle.Render("enter/l attach  s start  x stop  r restart  R restart-all  d disable  e enable"))
	return b.String()
}

func (m Model) logsView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("logs: %s", m.attached)) + dimStyle.Render("  — esc to detach"))
	b.WriteString("\n\n")
	b.WriteString(m.logView.View())
	return b.String()
}

func (m Model) helpView() string {
	lines := []string{
		"micromux — keybindings",
		"",
		"  up/down, j/k   move selection",
		"  enter, l       attach to selected service's logs",
		"  esc            detach from logs",
		"  s              start selected service",
		"  x              stop selected service",
		"  r              restart selected service",
		"  R              restart all services",
		"  d              disable selected service",
		"  e              enable a disabled service",
		"  q, ctrl+c      shut down and quit",
		"",
		"press any key to return",
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}
