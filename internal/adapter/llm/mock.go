package llm

import (
	"context"
	"sync"
)

// MockLLM records every prompt and answers with a canned reply.
type MockLLM struct {
	Reply string
	Err   error

	mu      sync.Mutex
	prompts []string
	models  []string
}

func NewMockLLM(reply string) *MockLLM {
	return &MockLLM{Reply: reply}
}

func (m *MockLLM) Complete(_ context.Context, prompt, model string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.models = append(m.models, model)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// Calls returns the number of Complete invocations.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// LastPrompt returns the most recent prompt, or "" if none.
func (m *MockLLM) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// LastModel returns the model named by the most recent call.
func (m *MockLLM) LastModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.models) == 0 {
		return ""
	}
	return m.models[len(m.models)-1]
}
