package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/kg-road/roadrag/internal/observability"
	"github.com/kg-road/roadrag/internal/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Generator turns an LLMProvider into the single-call completion the RAG
// loop uses for both query generation and answer synthesis. It adds
// bounded retries for transient provider errors, optional client-side
// throttling, a per-call timeout, tracing and metrics.
type Generator struct {
	provider   LLMProvider
	model      string
	maxRetries int
	timeout    time.Duration
	baseDelay  time.Duration
	limiter    *rate.Limiter
	metrics    *observability.RAGMetrics
	logger     *observability.TracedLogger
	tracer     trace.Tracer
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithRetries sets how many times a retryable failure is retried after the
// first attempt. Zero disables retries.
func WithRetries(retries int) GeneratorOption {
	return func(g *Generator) {
		if retries >= 0 {
			g.maxRetries = retries
		}
	}
}

// WithRateLimit throttles completions to rps with a burst of one. Zero disables.
func WithRateLimit(rps float64) GeneratorOption {
	return func(g *Generator) {
		if rps > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		g.timeout = d
	}
}

// WithBackoff sets the first retry delay; later delays double.
func WithBackoff(base time.Duration) GeneratorOption {
	return func(g *Generator) {
		g.baseDelay = base
	}
}

func WithMetrics(m *observability.RAGMetrics) GeneratorOption {
	return func(g *Generator) {
		g.metrics = m
	}
}

func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = observability.NewTracedLogger(l, "llm")
	}
}

// NewGenerator wraps provider, sending every request to model.
func NewGenerator(provider LLMProvider, model string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		provider:   provider,
		model:      model,
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		logger:     observability.NewTracedLogger(nil, "llm"),
		tracer:     otel.Tracer("github.com/kg-road/roadrag/internal/llm"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Provider returns the wrapped provider.
func (g *Generator) Provider() LLMProvider {
	return g.provider
}

// Complete sends prompt with the system instruction and returns the text of
// the model's reply. Retryable errors are retried with exponential backoff
// up to the configured retry count; anything else returns immediately.
func (g *Generator) Complete(ctx context.Context, prompt, system string, maxTokens int, temperature float64) (string, error) {
	ctx, span := g.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", g.provider.Name()),
		attribute.String("llm.model", g.model),
		attribute.Int("llm.max_tokens", maxTokens),
		attribute.Float64("llm.temperature", temperature),
	))
	defer span.End()

	req := NewCompletionRequest(g.model,
		[]Message{NewUserMessage(prompt)},
		WithSystemPrompt(system),
		WithMaxTokens(maxTokens),
		WithTemperature(temperature),
	)
	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", NewInvalidRequestError(err.Error())
	}

	maxAttempts := g.maxRetries + 1
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := g.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", g.fail(span, types.WrapError(ErrContextCanceled, "completion cancelled", ctx.Err()))
			}
		}

		text, err := g.attempt(ctx, req)
		if err == nil {
			span.SetAttributes(attribute.Int("llm.attempts", attempt+1))
			return text, nil
		}
		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return "", g.fail(span, err)
		}
		g.logger.Warn(ctx, "retrying completion",
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"error", err)
	}

	return "", g.fail(span, types.WrapError(ErrRetriesExhausted,
		fmt.Sprintf("completion failed after %d attempts", maxAttempts), lastErr))
}

func (g *Generator) attempt(ctx context.Context, req CompletionRequest) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", types.WrapError(ErrContextCanceled, "rate limiter wait aborted", err)
		}
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.provider.Complete(callCtx, req)
	g.metrics.RecordLLMCall(ctx, g.provider.Name(), time.Since(start), err)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", NewTimeoutError("completion timed out", err)
		}
		return "", TranslateError(g.provider.Name(), err)
	}

	if resp == nil || strings.TrimSpace(resp.Message.Content) == "" {
		return "", types.NewError(ErrEmptyResponse, "provider returned no content")
	}
	if resp.FinishReason == FinishReasonContentFilter {
		return "", types.NewError(ErrContentFiltered, "response blocked by provider filter")
	}

	g.logger.Debug(ctx, "completion received",
		"finish_reason", string(resp.FinishReason),
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Message.Content, nil
}

func (g *Generator) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
