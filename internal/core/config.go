package core

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error

	// Client
	Endpoint        string `mapstructure:"endpoint"`         // WebSocket endpoint, e.g. ws://localhost:5001/ws
	LocalUserID     string `mapstructure:"local_user_id"`    // participant id of the local human
	LocalAuthor     string `mapstructure:"local_author"`     // display name the server echoes for local messages
	AssistantAuthor string `mapstructure:"assistant_author"` // display name of the remote agent

	// Server
	ListenAddr string `mapstructure:"listen_addr"`

	// News agent
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key"`
	ExaAPIKey        string `mapstructure:"exa_api_key"`
	DefaultModel     string `mapstructure:"default_model"`
}

// LoadConfig loads configuration from an optional YAML file and NEWSCHAT_*
// environment variables. Environment variables win over file values. The
// file argument may be empty, in which case newschat.yaml is looked up in
// the working directory and is not required to exist.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("endpoint", "ws://localhost:5001/ws")
	v.SetDefault("local_user_id", "user")
	v.SetDefault("local_author", "User")
	v.SetDefault("assistant_author", "Assistant")
	v.SetDefault("listen_addr", ":5001")
	v.SetDefault("default_model", "anthropic/claude-3.5-sonnet")
	// AutomaticEnv only surfaces keys viper already knows, so the keys
	// without a real default still need registering.
	v.SetDefault("openrouter_api_key", "")
	v.SetDefault("exa_api_key", "")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("newschat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("newschat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// The default lookup is best-effort; an explicit file must exist.
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// DEBUG flag overrides log level
	if os.Getenv("DEBUG") == "1" {
		cfg.LogLevel = "debug"
	}

	return &cfg, nil
}
