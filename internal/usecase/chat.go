package usecase

import (
	"context"
	"sync"

	"paperchat/internal/domain"
)

// NoRelevantContent is the assistant reply when retrieval finds nothing usable.
const NoRelevantContent = "Sorry, I couldn't find relevant content in this paper."

// ChatSession holds the in-memory conversation about one paper.
type ChatSession struct {
	PaperID   string
	retrieve  *RetrieveUseCase
	answer    *AnswerUseCase
	topK      int
	threshold float64

	mu      sync.Mutex
	model   string
	history []domain.ChatTurn
}

func NewChatSession(paperID string, retrieve *RetrieveUseCase, answer *AnswerUseCase, topK int, threshold float64, model string) *ChatSession {
	return &ChatSession{
		PaperID:   paperID,
		retrieve:  retrieve,
		answer:    answer,
		topK:      topK,
		threshold: threshold,
		model:     model,
	}
}

// Reply is one assistant turn plus the retrieval behind it.
type Reply struct {
	Text   string
	Result domain.QueryResult
}

// Ask retrieves context for question and, only when something relevant was
// found, asks the model. Both turns are appended to the history on success.
func (s *ChatSession) Ask(ctx context.Context, question string) (Reply, error) {
	result, err := s.retrieve.Retrieve(ctx, question, s.PaperID, s.topK, s.threshold)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Text: NoRelevantContent, Result: result}
	if result.Found {
		reply.Text, err = s.answer.Answer(ctx, question, result.Context, s.Model())
		if err != nil {
			return Reply{}, err
		}
	}

	s.mu.Lock()
	s.history = append(s.history,
		domain.ChatTurn{Role: domain.RoleUser, Content: question},
		domain.ChatTurn{Role: domain.RoleAssistant, Content: reply.Text},
	)
	s.mu.Unlock()

	return reply, nil
}

func (s *ChatSession) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SetModel switches the chat model for subsequent questions.
func (s *ChatSession) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
}

// History returns a copy of the conversation so far.
func (s *ChatSession) History() []domain.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatTurn(nil), s.history...)
}

// Reset clears the conversation.
func (s *ChatSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
