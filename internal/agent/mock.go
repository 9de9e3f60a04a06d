package agent

import "context"

// MockAgent is a canned-reply agent for tests and offline development.
type MockAgent struct {
	Reply string
	Err   error

	// Calls records every user message passed to Respond.
	Calls []string
}

// Respond returns the canned reply.
func (m *MockAgent) Respond(_ context.Context, _ []ChatMessage, userMessage string, _ Preferences) (string, error) {
	m.Calls = append(m.Calls, userMessage)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// MockSearcher returns fixed articles.
type MockSearcher struct {
	Articles []Article
	Err      error

	// Queries records every search query.
	Queries []string
}

// Search returns the fixed articles.
func (m *MockSearcher) Search(_ context.Context, query string) ([]Article, error) {
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Articles, nil
}
