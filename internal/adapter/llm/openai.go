package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"paperchat/internal/adapter/provider"
	"paperchat/internal/domain"
)

// OpenAIClient is a chat-completion client for OpenAI-compatible endpoints.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	temperature float64
	client      *http.Client
	retry       provider.RetryPolicy

	mu    sync.Mutex
	stats Stats
}

// Stats tracks usage across calls.
type Stats struct {
	TotalCalls       int
	TotalInputChars  int
	TotalOutputChars int
}

type Options struct {
	APIKeyEnv   string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
	Retry       provider.RetryPolicy
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	apiKey := ""
	if opts.APIKeyEnv != "" {
		apiKey = os.Getenv(opts.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("API key not found. Set %s environment variable", opts.APIKeyEnv)
		}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		baseURL:     baseURL,
		apiKey:      apiKey,
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: timeout},
		retry:       opts.Retry,
	}, nil
}

// NewOllamaClient targets a local Ollama server's OpenAI-compatible API,
// which needs no API key.
func NewOllamaClient(opts Options) (*OpenAIClient, error) {
	opts.APIKeyEnv = ""
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434/v1"
	}
	return NewOpenAIClient(opts)
}

// Complete sends prompt as a single user message to model and returns the
// first choice verbatim.
func (c *OpenAIClient) Complete(ctx context.Context, prompt, model string) (string, error) {
	var out string
	err := c.retry.Do(ctx, "chat", func(ctx context.Context) error {
		var err error
		out, err = c.chat(ctx, model, []chatMessage{{Role: "user", Content: prompt}})
		return err
	})
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.stats.TotalCalls++
	c.stats.TotalInputChars += len(prompt)
	c.stats.TotalOutputChars += len(out)
	c.mu.Unlock()

	return out, nil
}

func (c *OpenAIClient) chat(ctx context.Context, model string, messages []chatMessage) (string, error) {
	req := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.temperature,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: chat request failed: %w", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %w", domain.ErrProvider, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &provider.APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return "", &provider.APIError{StatusCode: resp.StatusCode, Message: chatResp.Error.Message}
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
