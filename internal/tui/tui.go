package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/password-game/internal/engine"
	"github.com/tatianab/password-game/internal/models"
)

type model struct {
	engine          *engine.Engine
	textInput       textinput.Model
	viewport        viewport.Model
	width           int
	height          int
	showSidebar     bool
	showRules       bool
	confirmingReset bool
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	aiStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingRight(1).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF87")).
			Bold(true)

	lostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

func newModel(eng *engine.Engine) model {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	return model{
		engine:      eng,
		textInput:   ti,
		showSidebar: true,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// stateChangedMsg is posted by the engine's change hook whenever stores
// mutate, including once per streamed fragment.
type stateChangedMsg struct{}

type submitFinishedMsg struct{}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.confirmingReset {
			switch msg.String() {
			case "y", "Y":
				m.confirmingReset = false
				return m, m.resetAll()
			default:
				m.confirmingReset = false
				return m, nil
			}
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyCtrlN:
			if chat, ok := m.engine.Chats().ActiveChat(); ok && chat.IsSessionComplete {
				m.engine.Chats().MarkCongratulationsSeen(chat.ID)
			}
			return m, m.newAttempt()

		case tea.KeyCtrlR:
			if m.engine.Game().Lives() <= 0 {
				m.engine.Game().MarkGameOverSeen()
			}
			m.confirmingReset = true
			return m, nil

		case tea.KeyCtrlO:
			m.selectNextAttempt()
			m.refreshLog()
			m.viewport.GotoBottom()
			return m, nil

		case tea.KeyCtrlX:
			if id := m.engine.Chats().ActiveChatID(); id != "" && !m.engine.IsStreaming() {
				m.engine.Chats().Delete(id)
				m.refreshLog()
				m.viewport.GotoBottom()
			}
			return m, nil

		case tea.KeyCtrlB:
			m.showSidebar = !m.showSidebar
			m.resize()
			return m, nil

		case tea.KeyCtrlG:
			m.showRules = !m.showRules
			m.refreshLog()
			return m, nil

		case tea.KeyEnter:
			text := m.textInput.Value()
			if !m.canSubmit(text) {
				return m, nil
			}
			m.textInput.Reset()
			return m, m.submit(text)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshLog()
		m.viewport.GotoBottom()

	case stateChangedMsg:
		m.refreshLog()
		m.viewport.GotoBottom()
		return m, nil

	case submitFinishedMsg:
		m.refreshLog()
		m.viewport.GotoBottom()
		return m, nil
	}

	if !m.inputDisabled() {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *model) resize() {
	logWidth := m.width
	if m.showSidebar {
		logWidth = int(float64(m.width) * 0.75)
	}
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(logWidth, m.height-6)
	} else {
		m.viewport.Width = logWidth
		m.viewport.Height = m.height - 6
	}
	m.textInput.Width = max(20, logWidth-4)
}

func (m *model) refreshLog() {
	m.viewport.SetContent(m.renderLog())
}

// selectNextAttempt cycles the active pointer through the sidebar order.
func (m *model) selectNextAttempt() {
	chatList := m.engine.Chats().Chats()
	if len(chatList) < 2 {
		return
	}
	activeID := m.engine.Chats().ActiveChatID()
	for i, c := range chatList {
		if c.ID == activeID {
			m.engine.Chats().Select(chatList[(i+1)%len(chatList)].ID)
			return
		}
	}
}

func (m model) canSubmit(text string) bool {
	return strings.TrimSpace(text) != "" && !m.inputDisabled()
}

func (m model) inputDisabled() bool {
	return m.engine.IsStreaming() ||
		m.engine.Game().IsSessionComplete() ||
		m.engine.Game().Lives() <= 0
}

func (m model) submit(text string) tea.Cmd {
	return func() tea.Msg {
		m.engine.Submit(context.Background(), text)
		return submitFinishedMsg{}
	}
}

func (m model) newAttempt() tea.Cmd {
	return func() tea.Msg {
		m.engine.NewAttempt(context.Background())
		return stateChangedMsg{}
	}
}

func (m model) resetAll() tea.Cmd {
	return func() tea.Msg {
		m.engine.ResetAll(context.Background())
		return stateChangedMsg{}
	}
}

func (m model) View() string {
	if m.width == 0 {
		return "\n  Loading...\n"
	}

	header := m.renderHeader()
	logView := m.viewport.View()

	mainView := logView
	if m.showSidebar {
		mainView = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), logView)
	}

	var bottom string
	if m.confirmingReset {
		bottom = lostStyle.Render("Reset everything? All attempts, rules, and lives will be lost. (y/n)")
	} else {
		bottom = m.textInput.View()
	}

	help := helpStyle.Render("enter: " + m.sendLabel() + " • ctrl+n: new attempt • ctrl+o: switch • ctrl+x: delete • ctrl+b: sidebar • ctrl+g: rules • ctrl+r: reset • esc: quit")

	return "\n" + lipgloss.JoinVertical(lipgloss.Left,
		header,
		mainView,
		"\n"+bottom,
		"\n"+help,
	) + "\n"
}

func (m model) renderHeader() string {
	gs := m.engine.Game()
	lives := gs.Lives()
	hearts := strings.Repeat("♥ ", lives) + strings.Repeat("♡ ", max(0, gs.MaxLives()-lives))
	level := fmt.Sprintf("AI level %d", len(gs.Rules())+1)

	chat, hasChat := m.engine.Chats().ActiveChat()

	status := ""
	switch {
	case hasChat && chat.IsSessionComplete && !chat.HasSeenCongratulations:
		banner := "  PASSWORD FOUND! Start a new attempt to face a smarter AI."
		if gs.Celebrating() {
			banner = "  ✦ PASSWORD FOUND! ✦ Start a new attempt to face a smarter AI."
		}
		status = winStyle.Render(banner)
	case gs.IsSessionComplete():
		status = winStyle.Render("  Session complete. ctrl+n starts the next attempt.")
	case lives <= 0 && !gs.HasSeenGameOver():
		status = lostStyle.Render("  GAME OVER. Press ctrl+r to reset.")
	case lives <= 0:
		status = lostStyle.Render("  GAME OVER.")
	case m.engine.IsStreaming():
		status = helpStyle.Render("  AI is responding...")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("PASSWORD GAME"),
		"   "+hearts,
		"  "+level,
		status,
	)
}

func (m model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ATTEMPTS") + "\n")
	activeID := m.engine.Chats().ActiveChatID()
	for _, chat := range m.engine.Chats().Chats() {
		marker := "  "
		if chat.ID == activeID {
			marker = "> "
		}
		line := marker + chat.Title
		if chat.IsSessionComplete {
			line += " ✓"
		}
		b.WriteString(line + "\n")
	}

	sidebarWidth := max(16, int(float64(m.width)*0.23))
	return sidebarStyle.Width(sidebarWidth).Height(m.viewport.Height).Render(b.String())
}

func (m model) renderLog() string {
	if m.showRules {
		return m.renderRules()
	}

	chat, ok := m.engine.Chats().ActiveChat()
	if !ok || len(chat.Messages) == 0 {
		return helpStyle.Render("The AI is guarding a secret password. Convince it to tell you.")
	}

	logWidth := m.viewport.Width
	var b strings.Builder
	for _, msg := range chat.Messages {
		b.WriteString(m.renderMessage(msg, logWidth))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m model) renderMessage(msg models.Message, width int) string {
	if msg.IsUser {
		return userStyle.Width(width).Render("> " + msg.Text)
	}
	if msg.IsLoading && msg.Text == "" {
		return helpStyle.Render("...")
	}
	return aiStyle.Width(width).Render(msg.Text)
}

func (m model) renderRules() string {
	rules := m.engine.Game().Rules()
	if len(rules) == 0 {
		return helpStyle.Render("No rules yet. Every found password teaches the AI a new one.")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("RULES") + "\n\n")
	for _, rule := range rules {
		b.WriteString(fmt.Sprintf("%d. %s\n   %s\n\n", rule.ID, rule.Title, rule.Description))
	}
	return b.String()
}

func (m model) sendLabel() string {
	gs := m.engine.Game()
	switch {
	case m.engine.IsStreaming():
		return "sending..."
	case gs.IsSessionComplete():
		return "completed!"
	case gs.Lives() <= 0:
		return "no lives"
	}
	return "send"
}

// Run starts the TUI and wires the engine's change hook into the program's
// message loop so streamed fragments repaint as they land.
func Run(eng *engine.Engine) error {
	p := tea.NewProgram(newModel(eng), tea.WithAltScreen())
	eng.SetOnChange(func() {
		p.Send(stateChangedMsg{})
	})
	_, err := p.Run()
	return err
}
