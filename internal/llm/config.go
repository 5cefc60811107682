package llm

import (
	"context"
	"fmt"
	"os"
)

// Config selects and configures the remote evaluation provider.
type Config struct {
	// Provider is one of "openai", "gemini", "anthropic", "mock".
	Provider string
	BaseURL  string // OpenAI-compatible endpoints only (Ollama, OpenRouter, ...)
	APIKey   string
	Model    string
}

// keyEnv lists the conventional API key variables per provider.
var keyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Validate checks that the selected provider has the credential it needs,
// consulting the provider's conventional environment variable when APIKey is empty.
func (c *Config) Validate() error {
	switch c.Provider {
	case "mock":
		return nil
	case "openai", "gemini", "anthropic":
		if c.APIKey == "" {
			c.APIKey = os.Getenv(keyEnv[c.Provider])
		}
		// OpenAI-compatible local servers accept any key.
		if c.APIKey == "" && !(c.Provider == "openai" && c.BaseURL != "") {
			return fmt.Errorf("%s is required for the %s provider", keyEnv[c.Provider], c.Provider)
		}
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
}

// NewProvider creates a Provider from configuration.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "openai":
		key := cfg.APIKey
		if key == "" {
			key = "none"
		}
		return New(cfg.BaseURL, key, cfg.Model), nil
	case "gemini":
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.Model)
	default:
		return NewMockProvider(), nil
	}
}
