package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/dispatch"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/session"
)

const (
	refreshInterval = 200 * time.Millisecond
	captureOwner    = "group-input"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	selfStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type tickMsg time.Time

type viewMsg session.View

// Model is the terminal host surface: it renders the roster and forwards
// raw key presses to the input dispatcher. While the group-id input is
// focused it holds key capture, so presses edit text instead of driving
// devices.
type Model struct {
	supervisor *session.Supervisor
	view       session.View
	input      textinput.Model
	inputOpen  bool
}

func NewModel(s *session.Supervisor) Model {
	input := textinput.New()
	input.Placeholder = "group id"
	input.CharLimit = 64
	return Model{supervisor: s, input: input}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.refresh())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		view, err := m.supervisor.Snapshot(ctx)
		if err != nil {
			return nil
		}
		return viewMsg(view)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(tick(), m.refresh())

	case viewMsg:
		m.view = session.View(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.supervisor.Inbox() <- session.Shutdown{}
		return m, tea.Quit

	case tea.KeyCtrlG:
		m.inputOpen = true
		m.input.SetValue("")
		m.supervisor.Dispatcher().SetCapture(captureOwner)
		return m, m.input.Focus()

	case tea.KeyCtrlL:
		m.supervisor.Inbox() <- session.LeaveGroup{}
		return m, m.refresh()
	}

	if m.inputOpen {
		switch msg.Type {
		case tea.KeyEsc:
			m.closeInput()
			return m, nil
		case tea.KeyEnter:
			groupID := strings.TrimSpace(m.input.Value())
			m.closeInput()
			if groupID != "" {
				m.supervisor.Inbox() <- session.JoinGroup{GroupID: groupID}
			}
			return m, m.refresh()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	// Terminals only deliver key-down, so a press is forwarded as a full
	// press/release tap.
	if code := KeyCode(msg); code != "" {
		m.supervisor.Inbox() <- session.Key{Event: dispatch.KeyEvent{Code: code, State: dispatch.StatePress}}
		m.supervisor.Inbox() <- session.Key{Event: dispatch.KeyEvent{Code: code, State: dispatch.StateRelease}}
	}
	return m, nil
}

func (m *Model) closeInput() {
	m.inputOpen = false
	m.input.Blur()
	m.supervisor.Dispatcher().ReleaseCapture(captureOwner)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("dynamic-virtual-controller") + "\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("status: %s", m.view.Status)))
	if m.view.GroupID != "" {
		b.WriteString(statusStyle.Render(fmt.Sprintf("  group: %s", m.view.GroupID)))
	}
	b.WriteString("\n\n")

	if m.inputOpen {
		b.WriteString("join group: " + m.input.View() + "\n\n")
	}

	b.WriteString(titleStyle.Render("users") + "\n")
	if len(m.view.Group.Users) == 0 {
		b.WriteString(dimStyle.Render("  (none)") + "\n")
	}
	for _, user := range m.view.Group.Users {
		line := fmt.Sprintf("  %s  devices:%d  %s", user.Name, len(user.ConnectedDeviceIDs), formatPing(user.LastPing))
		if user.ID == m.view.UserID {
			b.WriteString(selfStyle.Render(line) + "\n")
		} else {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n" + titleStyle.Render("devices") + "\n")
	if len(m.view.Group.Devices) == 0 {
		b.WriteString(dimStyle.Render("  (none)") + "\n")
	}
	for _, device := range m.view.Group.Devices {
		marker := " "
		if user, ok := m.view.Group.UserByID(m.view.UserID); ok {
			for _, id := range user.ConnectedDeviceIDs {
				if id == device.ID {
					marker = "*"
				}
			}
		}
		preset := m.view.SlotPresets[device.Slot]
		b.WriteString(fmt.Sprintf(" %s[%d] %s  preset:%s  users:%d  %s\n",
			marker, device.Slot, device.Name, preset, len(device.ConnectedUserIDs), formatPing(device.LastPing)))
	}

	b.WriteString("\n" + helpStyle.Render("ctrl+g join · ctrl+l leave · ctrl+c quit · other keys are forwarded"))
	return b.String()
}

func formatPing(ping *float64) string {
	if ping == nil {
		return dimStyle.Render("ping:-")
	}
	return fmt.Sprintf("ping:%.0fms", *ping*1000)
}
