package providers

import (
	"context"
	"os"

	"github.com/kg-road/roadrag/internal/llm"
	"github.com/tmc/langchaingo/llms/googleai"
)

// NewGoogleProvider creates a provider for Gemini models. The key falls
// back to GOOGLE_API_KEY.
func NewGoogleProvider(ctx context.Context, cfg llm.ProviderConfig) (llm.LLMProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, llm.NewProviderUnauthorizedError("google", nil)
	}

	opts := []googleai.Option{googleai.WithAPIKey(apiKey)}
	if cfg.DefaultModel != "" {
		opts = append(opts, googleai.WithDefaultModel(cfg.DefaultModel))
	}

	client, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, llm.TranslateError("google", err)
	}
	return &langchainProvider{name: "google", client: client, config: cfg}, nil
}
