package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "anthropic", "openai", "gemini", "openrouter", "mock"
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-sonnet"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional. Override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string
	Model   string // Default: "google/gemini-2.5-flash"
	BaseURL string // Default: "https://openrouter.ai/api/v1"

	// AppTitle and AppURL are sent as X-Title and HTTP-Referer so usage is
	// attributed to the application on openrouter.ai.
	AppTitle string // Default: "kahani"
	AppURL   string
}

// RetryConfig configures retry behavior for transient failures.
// MaxAttempts counts the first call, so 2 means at most one retry.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "anthropic",
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: OpenRouterConfig{
			Model:    "google/gemini-2.5-flash",
			AppTitle: "kahani",
		},
		Retry: RetryConfig{
			MaxAttempts: 2,
			InitialWait: 1 * time.Second,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
	}
}

// ConfigFromEnv builds a Config from KAHANI_* environment variables,
// falling back to defaults for unset values. When no provider is chosen
// explicitly, the standard vendor key variables are probed.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if p := os.Getenv("KAHANI_LLM_PROVIDER"); p != "" {
		cfg.Provider = p
	} else if discovered, ok := DiscoverConfig(); ok {
		cfg = discovered
	}

	if k := os.Getenv("KAHANI_ANTHROPIC_API_KEY"); k != "" {
		cfg.Anthropic.APIKey = k
	}
	if m := os.Getenv("KAHANI_ANTHROPIC_MODEL"); m != "" {
		cfg.Anthropic.Model = m
	}

	if k := os.Getenv("KAHANI_OPENAI_API_KEY"); k != "" {
		cfg.OpenAI.APIKey = k
	}
	if m := os.Getenv("KAHANI_OPENAI_MODEL"); m != "" {
		cfg.OpenAI.Model = m
	}
	if u := os.Getenv("KAHANI_OPENAI_BASE_URL"); u != "" {
		cfg.OpenAI.BaseURL = u
	}

	if k := os.Getenv("KAHANI_GEMINI_API_KEY"); k != "" {
		cfg.Gemini.APIKey = k
	}
	if m := os.Getenv("KAHANI_GEMINI_MODEL"); m != "" {
		cfg.Gemini.Model = m
	}

	if k := os.Getenv("KAHANI_OPENROUTER_API_KEY"); k != "" {
		cfg.OpenRouter.APIKey = k
	}
	if m := os.Getenv("KAHANI_OPENROUTER_MODEL"); m != "" {
		cfg.OpenRouter.Model = m
	}
	if u := os.Getenv("KAHANI_OPENROUTER_APP_URL"); u != "" {
		cfg.OpenRouter.AppURL = u
	}

	return cfg
}

// DiscoverConfig probes standard API key env vars in priority order
// (Anthropic → OpenAI → Gemini → OpenRouter) and returns a Config for the
// first provider whose key is found. Returns (Config{}, false) if none found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("KAHANI_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("KAHANI_OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("KAHANI_GEMINI_API_KEY is required for the gemini provider")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("KAHANI_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}
