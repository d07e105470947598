package providers

import (
	"os"

	"github.com/kg-road/roadrag/internal/llm"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewOpenAIProvider creates a provider for OpenAI or any OpenAI-compatible
// endpoint set through BaseURL. The key falls back to OPENAI_API_KEY.
func NewOpenAIProvider(cfg llm.ProviderConfig) (llm.LLMProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewProviderUnauthorizedError("openai", nil)
	}

	opts := []openai.Option{openai.WithToken(apiKey)}
	if cfg.DefaultModel != "" {
		opts = append(opts, openai.WithModel(cfg.DefaultModel))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("openai", err)
	}
	return &langchainProvider{name: "openai", client: client, config: cfg}, nil
}
