package providers

import (
	"github.com/google/uuid"
	"github.com/kg-road/roadrag/internal/llm"
	"github.com/tmc/langchaingo/llms"
)

// toSchemaMessages converts a request to langchaingo messages. The system
// prompt, when set, becomes a leading system message; providers that take
// a separate system parameter lift it out themselves.
func toSchemaMessages(req llm.CompletionRequest) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		result = append(result, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}

	for _, msg := range req.Messages {
		var role llms.ChatMessageType
		switch msg.Role {
		case llm.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case llm.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		result = append(result, llms.TextParts(role, msg.Content))
	}

	return result
}

// buildCallOptions converts request settings to langchaingo call options.
func buildCallOptions(req llm.CompletionRequest) []llms.CallOption {
	callOpts := make([]llms.CallOption, 0, 3)

	if req.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Model != "" {
		callOpts = append(callOpts, llms.WithModel(req.Model))
	}

	return callOpts
}

// usage keys differ per backend; the first present one wins.
var (
	promptTokenKeys     = []string{"InputTokens", "PromptTokens", "input_tokens", "prompt_tokens"}
	completionTokenKeys = []string{"OutputTokens", "CompletionTokens", "output_tokens", "completion_tokens"}
)

// fromLangchainResponse converts a langchaingo response to ours.
func fromLangchainResponse(resp *llms.ContentResponse, model string) *llm.CompletionResponse {
	out := &llm.CompletionResponse{
		ID:           uuid.New().String(),
		Model:        model,
		Message:      llm.Message{Role: llm.RoleAssistant},
		FinishReason: llm.FinishReasonStop,
	}
	if resp == nil || len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	out.Message.Content = choice.Content

	switch choice.StopReason {
	case "length", "max_tokens":
		out.FinishReason = llm.FinishReasonLength
	case "content_filter", "safety", "SAFETY":
		out.FinishReason = llm.FinishReasonContentFilter
	}

	out.Usage.PromptTokens = intFrom(choice.GenerationInfo, promptTokenKeys)
	out.Usage.CompletionTokens = intFrom(choice.GenerationInfo, completionTokenKeys)
	out.Usage.TotalTokens = out.Usage.PromptTokens + out.Usage.CompletionTokens

	return out
}

func intFrom(info map[string]any, keys []string) int {
	for _, k := range keys {
		switch n := info[k].(type) {
		case int:
			return n
		case int32:
			return int(n)
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}
