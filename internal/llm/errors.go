package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kg-road/roadrag/internal/types"
)

// LLM error codes
const (
	ErrProviderNotFound     types.ErrorCode = "LLM_PROVIDER_NOT_FOUND"
	ErrProviderInitFailed   types.ErrorCode = "LLM_PROVIDER_INIT_FAILED"
	ErrProviderUnavailable  types.ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
	ErrProviderUnauthorized types.ErrorCode = "LLM_PROVIDER_UNAUTHORIZED"
	ErrProviderRateLimited  types.ErrorCode = "LLM_PROVIDER_RATE_LIMITED"

	ErrInvalidRequest   types.ErrorCode = "LLM_INVALID_REQUEST"
	ErrCompletionFailed types.ErrorCode = "LLM_COMPLETION_FAILED"
	ErrEmptyResponse    types.ErrorCode = "LLM_EMPTY_RESPONSE"
	ErrContentFiltered  types.ErrorCode = "LLM_CONTENT_FILTERED"
	ErrTimeoutExceeded  types.ErrorCode = "LLM_TIMEOUT_EXCEEDED"
	ErrContextCanceled  types.ErrorCode = "LLM_CONTEXT_CANCELED"
	ErrNetworkFailed    types.ErrorCode = "LLM_NETWORK_FAILED"
	ErrRetriesExhausted types.ErrorCode = "LLM_RETRIES_EXHAUSTED"
)

// IsRetryable determines if an error is transient and may succeed on retry.
func IsRetryable(err error) bool {
	var llmErr *types.Error
	if !errors.As(err, &llmErr) {
		return false
	}
	if llmErr.Retryable {
		return true
	}

	switch llmErr.Code {
	case ErrNetworkFailed, ErrProviderRateLimited, ErrProviderUnavailable, ErrTimeoutExceeded:
		return true
	default:
		// auth, invalid request, content filter and cancellation never heal on retry
		return false
	}
}

func NewProviderNotFoundError(providerName string) *types.Error {
	return types.NewError(ErrProviderNotFound, "provider not found: "+providerName)
}

// NewProviderUnavailableError creates a retryable error for a temporarily unavailable provider.
func NewProviderUnavailableError(providerName string, cause error) *types.Error {
	return types.WrapRetryableError(ErrProviderUnavailable, "provider temporarily unavailable: "+providerName, cause)
}

// NewRateLimitError creates a retryable error for rate limiting.
func NewRateLimitError(providerName string, cause error) *types.Error {
	return types.WrapRetryableError(ErrProviderRateLimited, "rate limit exceeded for provider: "+providerName, cause)
}

func NewProviderUnauthorizedError(providerName string, cause error) *types.Error {
	return types.WrapError(ErrProviderUnauthorized,
		fmt.Sprintf("provider '%s' authentication failed", providerName), cause)
}

func NewInvalidRequestError(message string) *types.Error {
	return types.NewError(ErrInvalidRequest, message)
}

func NewCompletionError(message string, cause error) *types.Error {
	return types.WrapError(ErrCompletionFailed, message, cause)
}

// NewNetworkError creates a retryable error for network failures.
func NewNetworkError(message string, cause error) *types.Error {
	return types.WrapRetryableError(ErrNetworkFailed, message, cause)
}

// NewTimeoutError creates a retryable error for timeout failures.
func NewTimeoutError(message string, cause error) *types.Error {
	return types.WrapRetryableError(ErrTimeoutExceeded, message, cause)
}

// TranslateError maps a provider SDK error onto an LLM error code by
// inspecting its message. *types.Error values pass through unchanged.
func TranslateError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}

	lowerMsg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, context.Canceled):
		return types.WrapError(ErrContextCanceled, "request cancelled", err)
	case strings.Contains(lowerMsg, "unauthorized") || strings.Contains(lowerMsg, "authentication") || strings.Contains(lowerMsg, "api key"):
		return NewProviderUnauthorizedError(provider, err)
	case strings.Contains(lowerMsg, "rate limit") || strings.Contains(lowerMsg, "too many requests") || strings.Contains(lowerMsg, "429"):
		return NewRateLimitError(provider, err)
	case strings.Contains(lowerMsg, "overloaded") || strings.Contains(lowerMsg, "529") || strings.Contains(lowerMsg, "503"):
		return NewProviderUnavailableError(provider, err)
	case strings.Contains(lowerMsg, "timeout") || strings.Contains(lowerMsg, "deadline"):
		return NewTimeoutError(err.Error(), err)
	case strings.Contains(lowerMsg, "network") || strings.Contains(lowerMsg, "connection"):
		return NewNetworkError(err.Error(), err)
	case strings.Contains(lowerMsg, "content filter") || strings.Contains(lowerMsg, "safety"):
		return types.WrapError(ErrContentFiltered, "response blocked by provider filter", err)
	default:
		return NewCompletionError(provider+" completion failed", err)
	}
}
