package providers

import (
	"github.com/kg-road/roadrag/internal/llm"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaURL = "http://localhost:11434"

// NewOllamaProvider creates a provider for a local Ollama server.
func NewOllamaProvider(cfg llm.ProviderConfig) (llm.LLMProvider, error) {
	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = defaultOllamaURL
	}

	opts := []ollama.Option{ollama.WithServerURL(serverURL)}
	if cfg.DefaultModel != "" {
		opts = append(opts, ollama.WithModel(cfg.DefaultModel))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, llm.TranslateError("ollama", err)
	}
	return &langchainProvider{name: "ollama", client: client, config: cfg}, nil
}
