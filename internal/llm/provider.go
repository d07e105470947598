package llm

import (
	"context"

	"github.com/kg-road/roadrag/internal/types"
)

// LLMProvider is the minimal surface roadrag needs from a model backend.
// Implementations live in the providers package.
type LLMProvider interface {
	// Name returns the provider name ("anthropic", "openai", "ollama", "google", "mock").
	Name() string

	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Health checks the provider's connectivity.
	Health(ctx context.Context) types.HealthStatus
}
