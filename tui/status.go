// ABOUTME: TUI dashboard for sync engine status
// ABOUTME: Displays online/syncing/pending state and allows triggering syncs and cache refreshes
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ruteo/fieldsync/sync"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(16)

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	offlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	syncingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// tickMsg drives the periodic status refresh.
type tickMsg time.Time

// statusMsg carries a fresh controller snapshot.
type statusMsg struct {
	status sync.Status
	err    error
}

// Model is the dashboard state.
type Model struct {
	ctrl    *sync.Controller
	status  sync.Status
	err     error
	message string
}

// NewModel builds the dashboard over a running controller.
func NewModel(ctrl *sync.Controller) Model {
	return Model{ctrl: ctrl}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchStatus() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		status, err := ctrl.Snapshot()
		return statusMsg{status: status, err: err}
	}
}

// Init starts the refresh loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), tick())
}

// Update handles key presses and refresh ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), tick())

	case statusMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			if m.ctrl.TriggerSync() {
				m.message = "sync started"
			} else if !m.ctrl.IsOnline() {
				m.message = "offline, cannot sync"
			} else {
				m.message = "sync already running"
			}
			return m, m.fetchStatus()
		case "r":
			ctrl := m.ctrl
			m.message = "refreshing planned visits"
			return m, func() tea.Msg {
				_ = ctrl.RefreshPlanned(context.Background())
				status, err := ctrl.Snapshot()
				return statusMsg{status: status, err: err}
			}
		}
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Field Sync Status"))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(offlineStyle.Render(fmt.Sprintf("error: %v", m.err)))
		s.WriteString("\n")
	}

	conn := offlineStyle.Render("● offline")
	if m.status.Online {
		conn = onlineStyle.Render("● online")
	}
	s.WriteString(labelStyle.Render("Connectivity"))
	s.WriteString(conn)
	s.WriteString("\n")

	state := "idle"
	if m.status.Syncing {
		state = syncingStyle.Render("syncing…")
	}
	s.WriteString(labelStyle.Render("Sync"))
	s.WriteString(state)
	s.WriteString("\n")

	s.WriteString(labelStyle.Render("Pending"))
	s.WriteString(fmt.Sprintf("%d (%d reports, %d drafts)", m.status.Pending, m.status.PendingReports, m.status.PendingDrafts))
	s.WriteString("\n\n")

	s.WriteString(headerStyle.Render("Last run"))
	s.WriteString("\n")
	if last := m.status.LastSync; last != nil {
		s.WriteString(fmt.Sprintf("  %s  synced %d  purged %d  failed %d  (%s)\n",
			last.Finished.Local().Format("15:04:05"), last.Synced(), last.Purged, last.Failed, last.Trigger))
	} else {
		s.WriteString("  no runs yet\n")
	}

	if m.message != "" {
		s.WriteString("\n")
		s.WriteString(messageStyle.Render(m.message))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(messageStyle.Render("s: sync now • r: refresh planned • q: quit"))
	s.WriteString("\n")

	return s.String()
}

// Run starts the dashboard and blocks until quit.
func Run(ctrl *sync.Controller) error {
	p := tea.NewProgram(NewModel(ctrl))
	_, err := p.Run()
	return err
}
