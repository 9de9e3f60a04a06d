package agent

import (
	"fmt"
	"time"
)

// Config contains configuration for the chat completions client.
type Config struct {
	// APIKey is the OpenRouter API key
	APIKey string

	// BaseURL is the OpenAI-compatible API base URL
	// Default: https://openrouter.ai/api/v1
	BaseURL string

	// Model is the model used for agent turns
	Model string

	// SummaryModel is the cheaper model used for article summaries
	// Default: Model
	SummaryModel string

	// Timeout is the HTTP request timeout
	// Default: 60 seconds
	Timeout time.Duration

	// MaxToolRounds bounds tool-call iterations per turn
	// Default: 4
	MaxToolRounds int

	// MaxRetries bounds attempts per completions call for transient
	// failures (network errors, 429 and 5xx)
	// Default: 3
	MaxRetries int
}

// Validate checks that required config fields are set.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("APIKey is required")
	}
	if c.Model == "" {
		return fmt.Errorf("Model is required")
	}
	return nil
}

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.SummaryModel == "" {
		c.SummaryModel = c.Model
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxToolRounds == 0 {
		c.MaxToolRounds = 4
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}
