// Package tui renders the chat session in the terminal. It is a pure
// consumer: it reads the client's read-only snapshot and submits user input;
// every session invariant lives below it.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"newschat/internal/client"
	"newschat/internal/session"
)

const refreshInterval = 100 * time.Millisecond

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type refreshMsg struct{}

type noticeMsg struct {
	text string
	ok   bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	client *client.Client

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	snap   session.Snapshot
	notice string
	width  int
	height int
	ready  bool
}

// New creates the chat view over a running client.
func New(c *client.Client) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		client:  c,
		input:   input,
		spinner: sp,
		// Seed the snapshot so the first frame shows real slots, not an
		// empty header waiting for the first refresh tick.
		snap: c.Snapshot(),
	}
}

// Init starts the refresh loop and the notification listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refreshCmd(), m.waitNotice())
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m Model) waitNotice() tea.Cmd {
	notifications := m.client.Notifications()
	return func() tea.Msg {
		note, ok := <-notifications
		return noticeMsg{text: note.Text, ok: ok}
	}
}

// Update handles input and refresh messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 4
		footerHeight := 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.input.Width = msg.Width - 4
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if err := m.client.Submit(m.input.Value()); err != nil {
				m.notice = err.Error()
				return m, nil
			}
			m.input.Reset()
			m.notice = ""
			return m, nil
		}

	case refreshMsg:
		wasAtBottom := m.viewport.AtBottom()
		m.snap = m.client.Snapshot()
		m.viewport.SetContent(conversationView(m.snap, m.viewport.Width))
		if wasAtBottom {
			m.viewport.GotoBottom()
		}
		return m, refreshCmd()

	case noticeMsg:
		if !msg.ok {
			// Notifications end when the session loop stops.
			return m, nil
		}
		m.notice = msg.text
		return m, m.waitNotice()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("newschat"))
	b.WriteString("  ")
	b.WriteString(statusLine(m.snap))
	b.WriteString("\n")
	b.WriteString(preferencesLine(m.snap))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.snap.GateHeld {
		b.WriteString(m.spinner.View())
		b.WriteString(dimStyle.Render(" waiting for reply..."))
	} else if inputEnabled(m.snap) {
		b.WriteString(m.input.View())
	} else {
		b.WriteString(dimStyle.Render("Connecting..."))
	}
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
	}
	return b.String()
}

// inputEnabled reports whether the input box accepts a submission: connected
// and no submission outstanding.
func inputEnabled(snap session.Snapshot) bool {
	return snap.State == session.Connected && !snap.GateHeld
}

// statusLine renders the connection state.
func statusLine(snap session.Snapshot) string {
	switch snap.State {
	case session.Connected:
		return userStyle.Render("● connected")
	case session.Connecting:
		return noticeStyle.Render("● connecting")
	default:
		return dimStyle.Render("● disconnected")
	}
}

// preferencesLine renders interview progress, e.g. "Preferences 2/5".
func preferencesLine(snap session.Snapshot) string {
	if len(snap.Slots) == 0 {
		return ""
	}
	completed := 0
	var pending []string
	for _, slot := range snap.Slots {
		if slot.Completed {
			completed++
		} else {
			pending = append(pending, slot.Label)
		}
	}

	line := fmt.Sprintf("Preferences %d/%d", completed, len(snap.Slots))
	if completed == len(snap.Slots) {
		return dimStyle.Render(line + " ✓")
	}
	return dimStyle.Render(line + " · next: " + pending[0])
}

// conversationView renders the message log.
func conversationView(snap session.Snapshot, width int) string {
	if len(snap.Messages) == 0 {
		return dimStyle.Render("No messages yet. Say hello!")
	}

	var b strings.Builder
	for i, msg := range snap.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := assistantStyle.Render(msg.Author)
		if msg.Role == session.RoleUser {
			label = userStyle.Render("You")
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(wrap(msg.Content, width))
	}
	return b.String()
}

// wrap soft-wraps content to the viewport width.
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}
