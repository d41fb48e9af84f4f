// Package tui implements micromux's status/log terminal UI: a Bubbletea
// program that drives a supervisor.Supervisor over internal/protocol the
// same way any other front end would, with no privileged access to the
// engine's internals.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/micromux/micromux/internal/supervisor"
)

// Run starts the supervisor's reconciliation loop and drives it with a
// full-screen TUI until the user quits or the engine shuts down.
func Run(ctx context.Context, sup *supervisor.Supervisor) error {
	go sup.Run(ctx)

	p := tea.NewProgram(New(sup), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
