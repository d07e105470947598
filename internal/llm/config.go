package llm

import (
	"time"

	"github.com/kg-road/roadrag/internal/types"
)

// ProviderType names a supported model backend.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
	ProviderMock      ProviderType = "mock"
)

// ProviderConfig contains configuration for the model backend.
type ProviderConfig struct {
	Type         ProviderType  `mapstructure:"provider" yaml:"provider" validate:"required,oneof=anthropic openai google ollama mock"`
	APIKey       string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL      string        `mapstructure:"base_url" yaml:"base_url,omitempty" validate:"omitempty,url"`
	DefaultModel string        `mapstructure:"model" yaml:"model" validate:"required"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MaxRetries is how many times a retryable completion failure is retried
	// after the first attempt.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=0,lte=10"`

	// RequestsPerSecond throttles outgoing completions; zero disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`

	// MockResponses feeds the mock provider, cycled in order.
	MockResponses []string `mapstructure:"mock_responses" yaml:"mock_responses,omitempty"`
}

// Validate performs the checks struct tags cannot express.
func (p ProviderConfig) Validate() error {
	if p.Type == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "provider type cannot be empty")
	}
	if p.Type != ProviderMock && p.DefaultModel == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "model cannot be empty")
	}
	return nil
}
