package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"text/template"

	"paperchat/internal/port"
)

//go:embed templates/answer_prompt.txt
var templateFS embed.FS

var answerTemplate = template.Must(template.ParseFS(templateFS, "templates/answer_prompt.txt"))

// PromptData fills the answer prompt.
type PromptData struct {
	Context  string
	Question string
}

// RenderPrompt renders the fixed answer prompt for question and contextText.
func RenderPrompt(question, contextText string) (string, error) {
	var buf bytes.Buffer
	if err := answerTemplate.Execute(&buf, PromptData{Context: contextText, Question: question}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// AnswerUseCase asks a chat model to answer from supplied context.
type AnswerUseCase struct {
	llm port.LLM
}

func NewAnswerUseCase(llm port.LLM) *AnswerUseCase {
	return &AnswerUseCase{llm: llm}
}

// Answer renders the prompt and calls the model once, returning its reply
// verbatim. It does not check whether contextText is empty; callers gate on
// retrieval results.
func (u *AnswerUseCase) Answer(ctx context.Context, question, contextText, model string) (string, error) {
	prompt, err := RenderPrompt(question, contextText)
	if err != nil {
		return "", err
	}
	reply, err := u.llm.Complete(ctx, prompt, model)
	if err != nil {
		return "", fmt.Errorf("failed to get answer from %s: %w", model, err)
	}
	return reply, nil
}
