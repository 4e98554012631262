package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat/internal/adapter/llm"
	"paperchat/internal/domain"
)

func TestRenderPrompt(t *testing.T) {
	prompt, err := RenderPrompt("What is attention?", "Attention is all you need.")
	require.NoError(t, err)

	want := "Answer the question based on the following context:\n\n" +
		"Attention is all you need.\n\n--------\n\n" +
		"Answer the question based on the following query:\n\n" +
		"What is attention?"
	assert.Equal(t, want, prompt)
}

func TestRenderPrompt_NoEscaping(t *testing.T) {
	prompt, err := RenderPrompt("a < b?", "x & y")
	require.NoError(t, err)
	assert.Contains(t, prompt, "a < b?")
	assert.Contains(t, prompt, "x & y")
}

func TestAnswer_CallsModelOnce(t *testing.T) {
	m := llm.NewMockLLM("  Attention weights tokens.\n")
	uc := NewAnswerUseCase(m)

	out, err := uc.Answer(context.Background(), "What is attention?", "ctx passage", "gpt-4o")
	require.NoError(t, err)

	assert.Equal(t, "  Attention weights tokens.\n", out)
	assert.Equal(t, 1, m.Calls())
	assert.Equal(t, "gpt-4o", m.LastModel())
	assert.Contains(t, m.LastPrompt(), "What is attention?")
	assert.Contains(t, m.LastPrompt(), "ctx passage")
}

func TestAnswer_DoesNotGateEmptyContext(t *testing.T) {
	m := llm.NewMockLLM("reply")
	_, err := NewAnswerUseCase(m).Answer(context.Background(), "q", "", "gpt-4")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Calls())
}

func TestAnswer_WrapsProviderError(t *testing.T) {
	m := llm.NewMockLLM("")
	m.Err = domain.ErrProvider
	_, err := NewAnswerUseCase(m).Answer(context.Background(), "q", "c", "gpt-4")
	assert.True(t, errors.Is(err, domain.ErrProvider))
}

func newSession(r *scriptedRetriever, m *llm.MockLLM, threshold float64) *ChatSession {
	return NewChatSession("p1", NewRetrieveUseCase(r, nil), NewAnswerUseCase(m), 5, threshold, "gpt-4")
}

func TestChatSession_AnswersWhenFound(t *testing.T) {
	r := &scriptedRetriever{chunks: []domain.ScoredChunk{scored("p1", "relevant passage", 0.8)}}
	m := llm.NewMockLLM("grounded answer")
	s := newSession(r, m, 0.5)

	reply, err := s.Ask(context.Background(), "question?")
	require.NoError(t, err)

	assert.Equal(t, "grounded answer", reply.Text)
	assert.True(t, reply.Result.Found)
	assert.Equal(t, 1, m.Calls())
	assert.True(t, strings.Contains(m.LastPrompt(), "relevant passage"))

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, domain.ChatTurn{Role: domain.RoleUser, Content: "question?"}, history[0])
	assert.Equal(t, domain.ChatTurn{Role: domain.RoleAssistant, Content: "grounded answer"}, history[1])
}

func TestChatSession_FallbackWithoutModelCall(t *testing.T) {
	r := &scriptedRetriever{chunks: []domain.ScoredChunk{scored("p1", "weak", 0.4)}}
	m := llm.NewMockLLM("should not be used")
	s := newSession(r, m, 0.9)

	reply, err := s.Ask(context.Background(), "question?")
	require.NoError(t, err)

	assert.Equal(t, NoRelevantContent, reply.Text)
	assert.Equal(t, "Sorry, I couldn't find relevant content in this paper.", reply.Text)
	assert.Equal(t, 0, m.Calls())
	assert.Len(t, s.History(), 2)
}

func TestChatSession_ModelSwitch(t *testing.T) {
	r := &scriptedRetriever{chunks: []domain.ScoredChunk{scored("p1", "passage", 0.9)}}
	m := llm.NewMockLLM("ok")
	s := newSession(r, m, 0.5)

	s.SetModel("gpt-4o-mini")
	_, err := s.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", m.LastModel())

	s.Reset()
	assert.Empty(t, s.History())
}

func TestChatSession_ErrorLeavesHistoryUntouched(t *testing.T) {
	r := &scriptedRetriever{err: domain.ErrIndexUnavailable}
	s := newSession(r, llm.NewMockLLM("x"), 0.5)

	_, err := s.Ask(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.Empty(t, s.History())
}
