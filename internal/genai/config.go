package genai

import (
	"fmt"
	"os"
	"time"
)

// Config holds all gateway configuration.
type Config struct {
	// Provider selects which backend to use: "gemini", "openai" or "mock".
	Provider string

	Gemini GeminiConfig
	OpenAI OpenAIConfig
	Retry  RetryConfig

	// Timeout is the maximum duration for a single AI request. Handlers
	// apply it as a context deadline. Default: 60s.
	Timeout time.Duration
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional override for compatible APIs.
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// Option configures the gateway.
type Option func(*Config)

// WithProvider forces a specific provider backend.
func WithProvider(name string) Option {
	return func(c *Config) { c.Provider = name }
}

// WithGeminiAPIKey sets the Gemini API key and selects the Gemini provider.
func WithGeminiAPIKey(key string) Option {
	return func(c *Config) {
		c.Provider = "gemini"
		c.Gemini.APIKey = key
	}
}

// WithOpenAIAPIKey sets the OpenAI API key and selects the OpenAI provider.
func WithOpenAIAPIKey(key string) Option {
	return func(c *Config) {
		c.Provider = "openai"
		c.OpenAI.APIKey = key
	}
}

// WithModel overrides the model for the selected provider.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Gemini.Model = model
		c.OpenAI.Model = model
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "gemini",
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 60 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, probing API key
// variables in priority order (Gemini first, matching the original service,
// then OpenAI) when no provider is forced.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
	} else if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
	}

	if m := os.Getenv("GEMINI_MODEL"); m != "" {
		cfg.Gemini.Model = m
	}
	if m := os.Getenv("OPENAI_MODEL"); m != "" {
		cfg.OpenAI.Model = m
	}
	if u := os.Getenv("OPENAI_BASE_URL"); u != "" {
		cfg.OpenAI.BaseURL = u
	}

	return cfg
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown AI provider: %q", c.Provider)
	}
	return nil
}

// resolveModel maps a friendly model name through the provider's alias
// table, passing through unknown names unchanged.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
