package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/micromux/micromux/internal/protocol"
	"github.com/micromux/micromux/internal/runtimestate"
	"github.com/micromux/micromux/internal/supervisor"
)

// viewMode is the pane currently in focus.
type viewMode int

const (
	viewTable viewMode = iota
	viewLogs
	viewHelp
)

// Model is the Bubbletea model for micromux's status/log TUI. Unlike the
// teacher's multi-tab, dual embedded/remote model, this one drives a
// single in-process supervisor.Supervisor directly: there is no remote
// API to talk to and no scale/schedule tabs to render.
type Model struct {
	sup *supervisor.Supervisor

	names    []string
	snapshot map[string]runtimestate.Snapshot

	view     viewMode
	table    table.Model
	logView  viewport.Model
	attached string
	attachCh chan []byte

	toast       string
	toastExpiry time.Time

	width, height int
	quitting      bool
	err           error
}

// New builds a Model that reads and commands sup.
func New(sup *supervisor.Supervisor) Model {
	return Model{
		sup:      sup,
		snapshot: map[string]runtimestate.Snapshot{},
		view:     viewTable,
		width:    100,
		height:   30,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		refreshCmd(),
		waitForEvent(m.sup.Events()),
	)
}

type refreshMsg time.Time

func refreshCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

type eventMsg protocol.Event

// waitForEvent blocks on the engine's event stream and wraps the next
// event (or the stream closing, on shutdown) as a tea.Msg.
func waitForEvent(events <-chan protocol.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventMsg{Kind: protocol.EngineShutdownComplete}
		}
		return eventMsg(ev)
	}
}

type outputMsg []byte

func waitForOutput(ch <-chan []byte) tea.Cmd {
	return func() tea.Msg {
		chunk, ok := <-ch
		if !ok {
			return nil
		}
		return outputMsg(chunk)
	}
}

func (m *Model) showToast(msg string, d time.Duration) {
	m.toast = msg
	m.toastExpiry = time.Now().Add(d)
}

func (m *Model) clearExpiredToast() {
	if m.toast != "" && time.Now().After(m.toastExpiry) {
		m.toast = ""
	}
}

// selectedName returns the service name under the table cursor, or "" if
// the table has no rows.
func (m *Model) selectedName() string {
	if len(m.names) == 0 {
		return ""
	}
	i := m.table.Cursor()
	if i < 0 || i >= len(m.names) {
		return ""
	}
	return m.names[i]
}
