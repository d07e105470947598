package llm

// CompletionOption is a functional option for configuring completion requests.
type CompletionOption func(*CompletionRequest)

// WithTemperature sets the sampling temperature (0.0 - 1.0). Query
// generation runs near zero; answer synthesis slightly higher.
func WithTemperature(temperature float64) CompletionOption {
	return func(req *CompletionRequest) {
		req.Temperature = temperature
	}
}

// WithMaxTokens caps the length of the response.
func WithMaxTokens(maxTokens int) CompletionOption {
	return func(req *CompletionRequest) {
		req.MaxTokens = maxTokens
	}
}

// WithSystemPrompt sets the system instruction for the request.
func WithSystemPrompt(prompt string) CompletionOption {
	return func(req *CompletionRequest) {
		req.SystemPrompt = prompt
	}
}

// WithMetadataOption adds metadata to the completion request.
func WithMetadataOption(key string, value any) CompletionOption {
	return func(req *CompletionRequest) {
		if req.Metadata == nil {
			req.Metadata = make(map[string]any)
		}
		req.Metadata[key] = value
	}
}

// NewCompletionRequest creates a request for model with the given messages.
//
//	req := NewCompletionRequest("claude-3-5-haiku-latest",
//	    []Message{NewUserMessage(prompt)},
//	    WithTemperature(0.1),
//	    WithMaxTokens(1000),
//	    WithSystemPrompt("Return valid JSON only. No additional text."),
//	)
func NewCompletionRequest(model string, messages []Message, opts ...CompletionOption) CompletionRequest {
	req := CompletionRequest{
		Model:    model,
		Messages: messages,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}
