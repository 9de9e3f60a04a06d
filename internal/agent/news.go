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

// Article is one search result handed to the model.
type Article struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"publishedDate,omitempty"`
	Author        string `json:"author,omitempty"`
	Text          string `json:"text,omitempty"`
}

// Searcher finds recent news articles for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Article, error)
}

// ExaSearcher implements Searcher against the Exa search API.
type ExaSearcher struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewExaSearcher creates a searcher. baseURL may be empty for the public
// API.
func NewExaSearcher(apiKey, baseURL string) *ExaSearcher {
	if baseURL == "" {
		baseURL = "https://api.exa.ai"
	}
	return &ExaSearcher{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type exaRequest struct {
	Query    string `json:"query"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Contents struct {
		Text bool `json:"text"`
	} `json:"contents"`
}

type exaResponse struct {
	Results []struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		URL           string `json:"url"`
		PublishedDate string `json:"publishedDate"`
		Author        string `json:"author"`
		Text          string `json:"text"`
	} `json:"results"`
}

// Search queries Exa for news articles with text contents.
func (s *ExaSearcher) Search(ctx context.Context, query string) ([]Article, error) {
	reqBody := exaRequest{Query: query, Type: "auto", Category: "news"}
	reqBody.Contents.Text = true

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	url := s.baseURL + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &core.NetworkError{Operation: "search", URL: url, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.NetworkError{Operation: "search", URL: url, Message: "read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed exaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	articles := make([]Article, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		articles = append(articles, Article{
			ID:            r.ID,
			Title:         r.Title,
			URL:           r.URL,
			PublishedDate: r.PublishedDate,
			Author:        r.Author,
			Text:          r.Text,
		})
	}
	return articles, nil
}
