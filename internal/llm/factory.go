package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/kahani/internal/logger"
	"github.com/abhisek/kahani/internal/store"
)

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with retry and logging middleware.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	// caller → retry → logging → base, so every attempt is logged.
	logged := WithLogging(base, cfg.Provider, events, log)
	return WithRetry(logged, cfg.Retry), nil
}
