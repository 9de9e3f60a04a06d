package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExaSearcherSearch(t *testing.T) {
	var gotPath, gotKey string
	var gotReq exaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Write([]byte(`{"results":[{"id":"a1","title":"Launch day","url":"https://example.com/a1","text":"Full text."}]}`))
	}))
	t.Cleanup(srv.Close)

	searcher := NewExaSearcher("exa-key", srv.URL)
	articles, err := searcher.Search(context.Background(), "rocket launch")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotPath != "/search" {
		t.Errorf("expected /search path, got %s", gotPath)
	}
	if gotKey != "exa-key" {
		t.Errorf("expected x-api-key header, got %q", gotKey)
	}
	if gotReq.Query != "rocket launch" || gotReq.Category != "news" || !gotReq.Contents.Text {
		t.Errorf("unexpected search request: %+v", gotReq)
	}

	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if articles[0].Title != "Launch day" || articles[0].Text != "Full text." {
		t.Errorf("unexpected article: %+v", articles[0])
	}
}

func TestExaSearcherSearchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	t.Cleanup(srv.Close)

	searcher := NewExaSearcher("bad-key", srv.URL)
	if _, err := searcher.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestExaSearcherDefaultBaseURL(t *testing.T) {
	searcher := NewExaSearcher("k", "")
	if searcher.baseURL != "https://api.exa.ai" {
		t.Errorf("expected public API default, got %s", searcher.baseURL)
	}
}
