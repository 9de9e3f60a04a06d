// Package agent implements the news agent the development server answers
// with once the preference interview is complete: an OpenRouter-compatible
// chat model with search_news and summarize_article tools.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"newschat/internal/core"
)

// Preferences maps preference slot ids to the user's answers.
type Preferences map[string]string

// Agent produces one assistant reply per user message.
type Agent interface {
	Respond(ctx context.Context, history []ChatMessage, userMessage string, prefs Preferences) (string, error)
}

// NewsAgent answers news questions, honoring the collected preferences in
// tone, format, language and interaction style.
type NewsAgent struct {
	client   *Client
	searcher Searcher
	log      core.Logger
}

// New creates a news agent.
func New(client *Client, searcher Searcher, log core.Logger) *NewsAgent {
	if log == nil {
		log = core.NopLogger()
	}
	return &NewsAgent{client: client, searcher: searcher, log: log}
}

// SystemPrompt builds the agent instructions from the collected preferences.
// Unanswered slots render as "not specified".
func SystemPrompt(prefs Preferences) string {
	get := func(key string) string {
		if v, ok := prefs[key]; ok && v != "" {
			return v
		}
		return "not specified"
	}

	return fmt.Sprintf(`You are a helpful AI news agent.

User Preferences:
- Tone of Voice: %s: Always format your responses in this tone of voice.
- Response Format: %s: Ensure to format all your responses in this format.
- Language: %s: Always respond in this language.
- Interaction Style: %s: Always respond in this interaction style.
- Preferred News Topics: %s: Use these preferred news topics to craft queries when searching for news articles unless explicitly specified otherwise.

You have access to tools for:
- Fetching the latest news articles on a given topic (search_news)
- Summarizing fetched news articles to provide concise information to the user (summarize_article)

Unless the user asks for a summary, or the information in a concise manner, use the search_news tool to fetch the latest news articles on a given topic, and simply return the results in appropriate formatting.
Remember to match their tone, format, language, and interaction style preferences.`,
		get("tone_of_voice"), get("response_format"), get("language"), get("interaction_style"), get("news_topics"))
}

const summarySystemPrompt = `You are a professional news summarizer. Your task is to create a clear, accurate, and concise summary of the provided article content.

Guidelines:
- Focus on the key facts, main points, and important details
- Maintain objectivity and avoid personal opinions
- Preserve the essential information and context
- Use clear, accessible language`

// tools declares search_news and summarize_article to the model.
func tools() []ToolDef {
	var search ToolDef
	search.Type = "function"
	search.Function.Name = "search_news"
	search.Function.Description = "Search for news articles on a specific topic"
	search.Function.Parameters = json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "The search query for news articles"}
		},
		"additionalProperties": false,
		"required": ["query"]
	}`)

	var summarize ToolDef
	summarize.Type = "function"
	summarize.Function.Name = "summarize_article"
	summarize.Function.Description = "Summarize a news article"
	summarize.Function.Parameters = json.RawMessage(`{
		"type": "object",
		"properties": {
			"article_content": {"type": "string", "description": "The full content of the article to summarize"}
		},
		"additionalProperties": false,
		"required": ["article_content"]
	}`)

	return []ToolDef{search, summarize}
}

// Respond runs one agent turn: the model may request tool calls, whose
// results are fed back until it produces a final text reply or the round
// budget runs out.
func (a *NewsAgent) Respond(ctx context.Context, history []ChatMessage, userMessage string, prefs Preferences) (string, error) {
	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: SystemPrompt(prefs)})
	messages = append(messages, history...)
	messages = append(messages, ChatMessage{Role: "user", Content: userMessage})

	for round := 0; round < a.client.config.MaxToolRounds; round++ {
		reply, err := a.client.Complete(ctx, a.client.config.Model, messages, tools(), nil)
		if err != nil {
			return "", err
		}

		if len(reply.ToolCalls) == 0 {
			if reply.Content == "" {
				return "", &core.LLMError{Task: "respond", Message: "empty reply"}
			}
			return reply.Content, nil
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			output := a.executeToolCall(ctx, call)
			messages = append(messages, ChatMessage{
				Role:       "tool",
				Content:    output,
				ToolCallID: call.ID,
			})
		}
	}

	return "", &core.LLMError{Task: "respond", Message: "tool round budget exhausted"}
}

// executeToolCall runs one tool and returns its JSON output. Tool failures
// are reported to the model as error payloads, never as Go errors: the
// model decides how to recover.
func (a *NewsAgent) executeToolCall(ctx context.Context, call ToolCall) string {
	var args map[string]string
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return toolError("Invalid JSON in tool arguments")
	}

	switch call.Function.Name {
	case "search_news":
		return a.searchNews(ctx, args["query"])
	case "summarize_article":
		return a.summarizeArticle(ctx, args["article_content"])
	default:
		return toolError(fmt.Sprintf("Unknown function: %s", call.Function.Name))
	}
}

func (a *NewsAgent) searchNews(ctx context.Context, query string) string {
	if a.searcher == nil {
		return toolError("News search is not configured")
	}
	articles, err := a.searcher.Search(ctx, query)
	if err != nil {
		a.log.Warn("news search failed", "query", query, "error", err)
		return toolError(fmt.Sprintf("Failed to search news: %v", err))
	}

	out, err := json.Marshal(map[string]any{
		"status":  "success",
		"results": articles,
	})
	if err != nil {
		return toolError("Failed to encode search results")
	}
	return string(out)
}

func (a *NewsAgent) summarizeArticle(ctx context.Context, content string) string {
	temperature := 0.3
	reply, err := a.client.Complete(ctx, a.client.config.SummaryModel, []ChatMessage{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: "Please summarize the following article content:\n\n" + content},
	}, nil, &temperature)
	if err != nil {
		a.log.Warn("summarization failed", "error", err)
		return toolError(fmt.Sprintf("Failed to summarize article: %v", err))
	}

	out, err := json.Marshal(map[string]string{
		"status":  "success",
		"summary": reply.Content,
	})
	if err != nil {
		return toolError("Failed to encode summary")
	}
	return string(out)
}

func toolError(msg string) string {
	out, _ := json.Marshal(map[string]string{"status": "error", "error": msg})
	return string(out)
}
