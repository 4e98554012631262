package port

import "context"

// LLM represents a chat-completion model.
type LLM interface {
	// Complete sends a single user prompt to the named model and returns its reply.
	Complete(ctx context.Context, prompt, model string) (string, error)
}
