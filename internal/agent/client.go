package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"newschat/internal/core"
)

// Client is an OpenAI-compatible chat completions client (OpenRouter by
// default).
type Client struct {
	config *Config
	http   *http.Client
}

// NewClient creates a new chat completions client.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	config.SetDefaults()

	return &Client{
		config: config,
		http: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// ChatMessage is one conversation turn as the API sees it.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-requested function invocation.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ToolDef declares a callable function to the model.
type ToolDef struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Tools       []ToolDef     `json:"tools,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// Complete performs one chat completions call, retrying transient failures
// (network errors, 429 and 5xx) up to MaxRetries attempts.
func (c *Client) Complete(ctx context.Context, model string, messages []ChatMessage, tools []ToolDef, temperature *float64) (ChatMessage, error) {
	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		msg, retryable, err := c.complete(ctx, model, messages, tools, temperature)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			return ChatMessage{}, err
		}

		select {
		case <-ctx.Done():
			return ChatMessage{}, lastErr
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return ChatMessage{}, lastErr
}

func (c *Client) complete(ctx context.Context, model string, messages []ChatMessage, tools []ToolDef, temperature *float64) (ChatMessage, bool, error) {
	if model == "" {
		model = c.config.Model
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Tools:       tools,
		Temperature: temperature,
	})
	if err != nil {
		return ChatMessage{}, false, &core.LLMError{Task: "complete", Message: "encode request", Err: err}
	}

	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ChatMessage{}, false, &core.LLMError{Task: "complete", Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return ChatMessage{}, true, &core.NetworkError{Operation: "completions", URL: url, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatMessage{}, true, &core.NetworkError{Operation: "completions", URL: url, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return ChatMessage{}, retryable, &core.LLMError{
			Task:    "complete",
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(raw), 200)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ChatMessage{}, false, &core.LLMError{Task: "complete", Message: "decode response", Err: err}
	}
	if parsed.Error != nil {
		return ChatMessage{}, false, &core.LLMError{Task: "complete", Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return ChatMessage{}, false, &core.LLMError{Task: "complete", Message: "no choices in response"}
	}

	return parsed.Choices[0].Message, false, nil
}

// truncate truncates a string to max length.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
