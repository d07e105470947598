package providers

import (
	"context"

	"github.com/kg-road/roadrag/internal/llm"
)

// NewProvider creates the LLM provider selected by cfg.Type.
func NewProvider(ctx context.Context, cfg llm.ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Type {
	case llm.ProviderAnthropic:
		return NewAnthropicProvider(cfg)
	case llm.ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case llm.ProviderGoogle:
		return NewGoogleProvider(ctx, cfg)
	case llm.ProviderOllama:
		return NewOllamaProvider(cfg)
	case llm.ProviderMock:
		responses := cfg.MockResponses
		if len(responses) == 0 {
			responses = []string{`{"operation": "read", "query": "MATCH (n) RETURN n LIMIT 0", "parameters": {}}`}
		}
		return NewMockProvider(responses), nil
	default:
		return nil, llm.NewProviderNotFoundError(string(cfg.Type))
	}
}
