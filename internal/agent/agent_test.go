package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"newschat/internal/core"
)

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt(Preferences{
		"tone_of_voice": "casual",
		"language":      "English",
	})

	if !strings.Contains(prompt, "Tone of Voice: casual") {
		t.Errorf("prompt missing tone preference:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Language: English") {
		t.Errorf("prompt missing language preference:\n%s", prompt)
	}
	// Unanswered slots render as "not specified".
	if !strings.Contains(prompt, "Response Format: not specified") {
		t.Errorf("prompt should mark unanswered slots:\n%s", prompt)
	}
	if !strings.Contains(prompt, "search_news") || !strings.Contains(prompt, "summarize_article") {
		t.Errorf("prompt should name both tools:\n%s", prompt)
	}
}

func toolCallResponse(name, arguments string) chatResponse {
	var call ToolCall
	call.ID = "call-1"
	call.Type = "function"
	call.Function.Name = name
	call.Function.Arguments = arguments

	var resp chatResponse
	resp.Choices = []struct {
		Message ChatMessage `json:"message"`
	}{{Message: ChatMessage{Role: "assistant", ToolCalls: []ToolCall{call}}}}
	return resp
}

func newTestAgent(t *testing.T, responses []chatResponse, searcher Searcher) (*NewsAgent, *[]chatRequest) {
	t.Helper()
	srv, requests := completionsStub(t, responses)
	client, err := NewClient(&Config{APIKey: "k", Model: "m", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return New(client, searcher, core.NopLogger()), requests
}

func TestNewsAgentRespondPlainReply(t *testing.T) {
	a, requests := newTestAgent(t, []chatResponse{textResponse("Here are the headlines.")}, &MockSearcher{})

	reply, err := a.Respond(context.Background(), nil, "What's new in tech?", Preferences{"news_topics": "technology"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "Here are the headlines." {
		t.Errorf("unexpected reply: %q", reply)
	}

	req := (*requests)[0]
	if req.Messages[0].Role != "system" {
		t.Errorf("first message should be the system prompt")
	}
	if len(req.Tools) != 2 {
		t.Errorf("expected 2 tool definitions, got %d", len(req.Tools))
	}
}

func TestNewsAgentRespondWithSearchTool(t *testing.T) {
	searcher := &MockSearcher{Articles: []Article{{ID: "a1", Title: "Go 1.26 released", URL: "https://example.com"}}}
	a, requests := newTestAgent(t, []chatResponse{
		toolCallResponse("search_news", `{"query":"golang"}`),
		textResponse("Go 1.26 is out."),
	}, searcher)

	reply, err := a.Respond(context.Background(), nil, "Any Go news?", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "Go 1.26 is out." {
		t.Errorf("unexpected reply: %q", reply)
	}

	if len(searcher.Queries) != 1 || searcher.Queries[0] != "golang" {
		t.Errorf("expected one search for golang, got %v", searcher.Queries)
	}

	// The tool output is fed back as a tool-role message.
	second := (*requests)[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != "tool" || last.ToolCallID != "call-1" {
		t.Errorf("expected tool result message, got %+v", last)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(last.Content), &payload); err != nil {
		t.Fatalf("tool output is not JSON: %v", err)
	}
	if payload["status"] != "success" {
		t.Errorf("expected success payload, got %v", payload)
	}
}

func TestNewsAgentSearchFailureReportedToModel(t *testing.T) {
	searcher := &MockSearcher{Err: context.DeadlineExceeded}
	a, requests := newTestAgent(t, []chatResponse{
		toolCallResponse("search_news", `{"query":"golang"}`),
		textResponse("I could not fetch news right now."),
	}, searcher)

	reply, err := a.Respond(context.Background(), nil, "Any Go news?", nil)
	if err != nil {
		t.Fatalf("tool failure must not fail the turn: %v", err)
	}
	if reply == "" {
		t.Error("expected a reply")
	}

	second := (*requests)[1]
	last := second.Messages[len(second.Messages)-1]
	if !strings.Contains(last.Content, "error") {
		t.Errorf("expected error payload fed to model, got %s", last.Content)
	}
}

func TestNewsAgentUnknownToolAndBadArguments(t *testing.T) {
	a, requests := newTestAgent(t, []chatResponse{
		toolCallResponse("delete_everything", `{}`),
		textResponse("done"),
	}, &MockSearcher{})

	if _, err := a.Respond(context.Background(), nil, "hi", nil); err != nil {
		t.Fatalf("unknown tool must not fail the turn: %v", err)
	}
	second := (*requests)[1]
	last := second.Messages[len(second.Messages)-1]
	if !strings.Contains(last.Content, "Unknown function") {
		t.Errorf("expected unknown-function payload, got %s", last.Content)
	}

	a2, requests2 := newTestAgent(t, []chatResponse{
		toolCallResponse("search_news", `{"query":`),
		textResponse("done"),
	}, &MockSearcher{})
	if _, err := a2.Respond(context.Background(), nil, "hi", nil); err != nil {
		t.Fatalf("bad arguments must not fail the turn: %v", err)
	}
	last = (*requests2)[1].Messages[len((*requests2)[1].Messages)-1]
	if !strings.Contains(last.Content, "Invalid JSON") {
		t.Errorf("expected invalid-JSON payload, got %s", last.Content)
	}
}

func TestNewsAgentToolRoundBudget(t *testing.T) {
	// The model keeps asking for tools forever; the loop must stop.
	a, _ := newTestAgent(t, []chatResponse{
		toolCallResponse("search_news", `{"query":"golang"}`),
	}, &MockSearcher{})

	_, err := a.Respond(context.Background(), nil, "Any Go news?", nil)
	var llmErr *core.LLMError
	if !errors.As(err, &llmErr) {
		t.Fatalf("expected LLMError, got %v", err)
	}
}

func TestNewsAgentHistoryIsForwarded(t *testing.T) {
	a, requests := newTestAgent(t, []chatResponse{textResponse("ok")}, &MockSearcher{})

	history := []ChatMessage{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	if _, err := a.Respond(context.Background(), history, "follow-up", nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	req := (*requests)[0]
	if len(req.Messages) != 4 {
		t.Fatalf("expected system+history+user = 4 messages, got %d", len(req.Messages))
	}
	if req.Messages[1].Content != "earlier question" || req.Messages[3].Content != "follow-up" {
		t.Errorf("history not forwarded in order: %+v", req.Messages)
	}
}
