package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"paperchat/internal/domain"
	"paperchat/internal/usecase"
)

// Session is the TUI-facing subset of a chat session.
type Session interface {
	Ask(ctx context.Context, question string) (usecase.Reply, error)
	History() []domain.ChatTurn
	Model() string
	SetModel(model string)
	Reset()
}

type replyMsg struct {
	reply usecase.Reply
	err   error
}

// Model is the Bubble Tea model for chatting with one paper.
type Model struct {
	ctx      context.Context
	session  Session
	title    string
	models   []string
	input    textinput.Model
	viewport viewport.Model
	status   string
	waiting  bool
	ready    bool
}

// New creates a chat model for session. models lists the ids offered by /models.
func New(ctx context.Context, session Session, title string, models []string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the paper, or /help"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		session:  session,
		title:    title,
		models:   models,
		input:    ti,
		viewport: vp,
		status:   fmt.Sprintf("Model: %s. Type a question and press Enter.", session.Model()),
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+subtitle, status, input box, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, vh-th)
		m.refresh()
		return m, nil
	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else if msg.reply.Result.Found {
			m.status = fmt.Sprintf("Answered from %d passages with %s.", len(msg.reply.Result.Chunks), m.session.Model())
		} else {
			m.status = "No relevant passages; model not called."
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
		switch msg.String() {
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" || m.waiting {
		return m, nil
	}
	m.input.SetValue("")

	if strings.HasPrefix(line, "/") {
		return m.command(line)
	}

	m.waiting = true
	m.status = "Thinking..."
	m.viewport.SetContent(m.renderTranscript(line))
	m.viewport.GotoBottom()
	return m, m.ask(line)
}

func (m Model) ask(question string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		reply, err := session.Ask(ctx, question)
		return replyMsg{reply: reply, err: err}
	}
}

func (m Model) command(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/model":
		if len(fields) < 2 {
			m.status = "Model: " + m.session.Model()
			return m, nil
		}
		m.session.SetModel(fields[1])
		m.status = "Switched model to " + fields[1]
	case "/models":
		m.status = "Models: " + strings.Join(m.models, ", ")
	case "/reset":
		m.session.Reset()
		m.status = "Conversation cleared."
		m.refresh()
	case "/help":
		m.status = "/model <id>  /models  /reset  /quit  PgUp/PgDn scroll"
	default:
		m.status = "Unknown command " + fields[0]
	}
	return m, nil
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript(""))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("paperchat")
	subtitle := subtleStyle.Render(m.title)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + subtitle + "\n" + transcript + "\n" + input + "\n" + status
}

// renderTranscript renders the history plus a pending question, if any.
func (m Model) renderTranscript(pending string) string {
	history := m.session.History()
	if len(history) == 0 && pending == "" {
		return subtleStyle.Render("No messages yet.")
	}
	width := max(10, m.viewport.Width-2)
	var sb strings.Builder
	for _, turn := range history {
		sb.WriteString(renderTurn(turn, width))
		sb.WriteString("\n\n")
	}
	if pending != "" {
		sb.WriteString(renderTurn(domain.ChatTurn{Role: domain.RoleUser, Content: pending}, width))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderTurn(turn domain.ChatTurn, width int) string {
	label := assistantStyle.Render("Assistant")
	if turn.Role == domain.RoleUser {
		label = userStyle.Render("You")
	}
	body := lipgloss.NewStyle().Width(width).Render(turn.Content)
	return label + "\n" + body
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true)
	subtleStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
