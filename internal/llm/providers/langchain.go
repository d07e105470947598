package providers

import (
	"context"

	"github.com/kg-road/roadrag/internal/llm"
	"github.com/kg-road/roadrag/internal/types"
	"github.com/tmc/langchaingo/llms"
)

// langchainProvider adapts any langchaingo llms.Model to llm.LLMProvider.
// The vendor constructors in this package differ only in how they build
// the underlying client.
type langchainProvider struct {
	name   string
	client llms.Model
	config llm.ProviderConfig
}

// Name returns the provider name
func (p *langchainProvider) Name() string {
	return p.name
}

// Complete sends a completion request
func (p *langchainProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if req.Model == "" {
		req.Model = p.config.DefaultModel
	}

	resp, err := p.client.GenerateContent(ctx, toSchemaMessages(req), buildCallOptions(req)...)
	if err != nil {
		return nil, llm.TranslateError(p.name, err)
	}
	return fromLangchainResponse(resp, req.Model), nil
}

// Health issues a one-token completion against the configured model.
func (p *langchainProvider) Health(ctx context.Context) types.HealthStatus {
	req := llm.NewCompletionRequest(p.config.DefaultModel,
		[]llm.Message{llm.NewUserMessage("ping")},
		llm.WithMaxTokens(1),
	)
	if _, err := p.Complete(ctx, req); err != nil {
		return types.Unhealthy(err.Error())
	}
	return types.Healthy(p.name + " reachable")
}
