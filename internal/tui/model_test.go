package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat/internal/domain"
	"paperchat/internal/usecase"
)

type fakeSession struct {
	model   string
	history []domain.ChatTurn
	asked   []string
}

func (s *fakeSession) Ask(_ context.Context, q string) (usecase.Reply, error) {
	s.asked = append(s.asked, q)
	s.history = append(s.history,
		domain.ChatTurn{Role: domain.RoleUser, Content: q},
		domain.ChatTurn{Role: domain.RoleAssistant, Content: "answer to " + q},
	)
	return usecase.Reply{Text: "answer to " + q, Result: domain.QueryResult{Found: true}}, nil
}

func (s *fakeSession) History() []domain.ChatTurn { return s.history }
func (s *fakeSession) Model() string              { return s.model }
func (s *fakeSession) SetModel(model string)      { s.model = model }
func (s *fakeSession) Reset()                     { s.history = nil }

func typeLine(t *testing.T, m tea.Model, line string) (tea.Model, tea.Cmd) {
	t.Helper()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	return m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func sized(m Model) tea.Model {
	out, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return out
}

func TestModel_AskRunsInCommand(t *testing.T) {
	s := &fakeSession{model: "gpt-4"}
	m := sized(New(context.Background(), s, "Attention.pdf", nil))

	m, cmd := typeLine(t, m, "what is attention?")
	require.NotNil(t, cmd)
	assert.Empty(t, s.asked, "question is asked asynchronously")
	assert.True(t, m.(Model).waiting)

	msg := cmd()
	m, _ = m.Update(msg)

	require.Equal(t, []string{"what is attention?"}, s.asked)
	view := m.View()
	assert.Contains(t, view, "answer to what is attention?")
	assert.False(t, m.(Model).waiting)
}

func TestModel_ModelCommand(t *testing.T) {
	s := &fakeSession{model: "gpt-4"}
	m := sized(New(context.Background(), s, "paper", []string{"gpt-4", "gpt-4o"}))

	m, cmd := typeLine(t, m, "/model gpt-4o")
	assert.Nil(t, cmd)
	assert.Equal(t, "gpt-4o", s.model)
	assert.Empty(t, s.asked)

	m, _ = typeLine(t, m, "/models")
	assert.True(t, strings.Contains(m.(Model).status, "gpt-4o"))
}

func TestModel_ResetAndQuit(t *testing.T) {
	s := &fakeSession{model: "gpt-4", history: []domain.ChatTurn{{Role: domain.RoleUser, Content: "old"}}}
	m := sized(New(context.Background(), s, "paper", nil))

	m, _ = typeLine(t, m, "/reset")
	assert.Empty(t, s.history)

	_, cmd := typeLine(t, m, "/quit")
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := New(context.Background(), &fakeSession{}, "paper", nil)
	assert.Equal(t, "Loading...", m.View())
}
