package tui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/micromux/micromux/internal/protocol"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.clearExpiredToast()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table = m.buildTable()
		m.logView = newLogViewport(m.width, m.height)
		return m, nil

	case refreshMsg:
		m.snapshot = m.sup.Store().Snapshot()
		m.names = make([]string, 0, len(m.snapshot))
		for name := range m.snapshot {
			m.names = append(m.names, name)
		}
		sort.Strings(m.names)
		if m.view == viewTable {
			m.table = m.buildTable()
		}
		return m, refreshCmd()

	case eventMsg:
		return m.handleEvent(msg)

	case outputMsg:
		m.logView.SetContent(m.logView.View() + string(msg))
		m.logView.GotoBottom()
		return m, waitForOutput(m.attachCh)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleEvent(ev eventMsg) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case protocol.EngineShutdownComplete:
		m.quitting = true
		return m, tea.Quit
	case protocol.Warning:
		m.showToast(ev.Message, 4*time.Second)
	}
	return m, waitForEvent(m.sup.Events())
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == viewHelp {
		m.view = viewTable
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if !m.quitting {
			m.quitting = true
			m.sup.Commands() <- protocol.Command{Kind: protocol.Shutdown}
		}
		return m, nil

	case "?":
		m.view = viewHelp
		return m, nil

	case "esc":
		if m.view == viewLogs {
			return m.detach()
		}
		return m, nil

	case "enter", "l":
		if m.view == viewTable {
			return m.attach(m.selectedName())
		}
		return m, nil

	case "s":
		m.send(protocol.Start, m.selectedName())
		return m, nil

	case "x":
		m.send(protocol.Stop, m.selectedName())
		return m, nil

	case "r":
		m.send(protocol.Restart, m.selectedName())
		return m, nil

	case "R":
		m.sup.Commands() <- protocol.Command{Kind: protocol.RestartAll}
		m.showToast("restarting all services", 2*time.Second)
		return m, nil

	case "d":
		m.send(protocol.Disable, m.selectedName())
		return m, nil

	case "e":
		m.send(protocol.Enable, m.selectedName())
		return m, nil
	}

	if m.view == viewTable {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m Model) send(kind protocol.CommandKind, name string) {
	if name == "" {
		return
	}
	m.sup.Commands() <- protocol.Command{Kind: kind, Name: name}
}

func (m Model) attach(name string) (tea.Model, tea.Cmd) {
	if name == "" {
		return m, nil
	}
	ch := make(chan []byte, 64)
	m.sup.Commands() <- protocol.Command{Kind: protocol.Attach, Name: name, ReplyTo: ch}
	m.attached = name
	m.attachCh = ch
	m.view = viewLogs
	m.logView = newLogViewport(m.width, m.height)
	m.logView.SetContent(fmt.Sprintf("-- attached to %s --\n", name))
	return m, waitForOutput(ch)
}

func (m Model) detach() (tea.Model, tea.Cmd) {
	if m.attached != "" {
		m.sup.Commands() <- protocol.Command{Kind: protocol.Detach, Name: m.attached}
	}
	m.attached = ""
	m.attachCh = nil
	m.view = viewTable
	return m, nil
}

func (m Model) buildTable() table.Model {
	cols := []table.Column{
		{Title: "SERVICE", Width: 20},
		{Title: "STATE", Width: 14},
		{Title: "HEALTH", Width: 12},
		{Title: "CPU%", Width: 8},
		{Title: "RSS", Width: 10},
		{Title: "RESTARTS", Width: 9},
	}

	rows := make([]table.Row, 0, len(m.names))
	for _, name := range m.names {
		s := m.snapshot[name]
		rows = append(rows, table.Row{
			name,
			formatState(s.Actual.Kind),
			formatHealth(s.Actual.Health),
			fmt.Sprintf("%.1f", s.Resource.CPUPercent),
			formatBytes(s.Resource.RSSBytes),
			fmt.Sprintf("%d", s.Attempts),
		})
	}

	height := m.height - 6
	if height < 3 {
		height = 3
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
		table.WithWidth(m.width),
	)

	st := table.DefaultStyles()
	st.Header = st.Header.BorderStyle(lipgloss.NormalBorder()).BorderForeground(primaryColor).BorderBottom(true).Bold(true)
	st.Selected = st.Selected.Foreground(lipgloss.Color("229")).Background(primaryColor).Bold(false)
	t.SetStyles(st)

	return t
}

func newLogViewport(width, height int) viewport.Model {
	vp := viewport.New(width-2, height-5)
	vp.Style = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(primaryColor)
	return vp
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
