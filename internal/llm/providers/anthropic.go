package providers

import (
	"os"

	"github.com/kg-road/roadrag/internal/llm"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// NewAnthropicProvider creates a provider for Anthropic's Claude models.
// The key falls back to ANTHROPIC_API_KEY.
func NewAnthropicProvider(cfg llm.ProviderConfig) (llm.LLMProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewProviderUnauthorizedError("anthropic", nil)
	}

	opts := []anthropic.Option{anthropic.WithToken(apiKey)}
	if cfg.DefaultModel != "" {
		opts = append(opts, anthropic.WithModel(cfg.DefaultModel))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	client, err := anthropic.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("anthropic", err)
	}
	return &langchainProvider{name: "anthropic", client: client, config: cfg}, nil
}
