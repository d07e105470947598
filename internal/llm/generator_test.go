package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kg-road/roadrag/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider replays a fixed list of outcomes.
type scriptedProvider struct {
	mu       sync.Mutex
	outcomes []outcome
	requests []CompletionRequest
}

type outcome struct {
	text   string
	finish FinishReason
	err    error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.outcomes) == 0 {
		return nil, errors.New("script exhausted")
	}
	o := p.outcomes[0]
	p.outcomes = p.outcomes[1:]
	if o.err != nil {
		return nil, o.err
	}
	finish := o.finish
	if finish == "" {
		finish = FinishReasonStop
	}
	return &CompletionResponse{Message: NewAssistantMessage(o.text), FinishReason: finish}, nil
}

func (p *scriptedProvider) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy("scripted")
}

func TestGenerator_CompleteBuildsRequest(t *testing.T) {
	p := &scriptedProvider{outcomes: []outcome{{text: `{"operation":"read"}`}}}
	g := NewGenerator(p, "claude-3-5-haiku-latest")

	got, err := g.Complete(context.Background(), "question prompt", "Return valid JSON only. No additional text.", 1000, 0.1)
	require.NoError(t, err)
	assert.Equal(t, `{"operation":"read"}`, got)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.Equal(t, "claude-3-5-haiku-latest", req.Model)
	assert.Equal(t, "Return valid JSON only. No additional text.", req.SystemPrompt)
	assert.Equal(t, 1000, req.MaxTokens)
	assert.Equal(t, 0.1, req.Temperature)
	assert.Equal(t, []Message{NewUserMessage("question prompt")}, req.Messages)
}

func TestGenerator_RetriesTransientErrors(t *testing.T) {
	p := &scriptedProvider{outcomes: []outcome{
		{err: errors.New("429 Too Many Requests")},
		{err: errors.New("connection reset by peer")},
		{text: "answer"},
	}}
	g := NewGenerator(p, "m", WithRetries(2), WithBackoff(time.Millisecond))

	got, err := g.Complete(context.Background(), "p", "s", 10, 0.3)
	require.NoError(t, err)
	assert.Equal(t, "answer", got)
	assert.Len(t, p.requests, 3)
}

func TestGenerator_GivesUpAfterMaxRetries(t *testing.T) {
	p := &scriptedProvider{outcomes: []outcome{
		{err: errors.New("overloaded")},
		{err: errors.New("overloaded")},
		{err: errors.New("overloaded")},
		{text: "never reached"},
	}}
	g := NewGenerator(p, "m", WithRetries(2), WithBackoff(time.Millisecond))

	_, err := g.Complete(context.Background(), "p", "s", 10, 0.3)
	require.Error(t, err)
	assert.Equal(t, ErrRetriesExhausted, types.CodeOf(err))
	assert.Len(t, p.requests, 3, "first attempt plus two retries")
}

func TestGenerator_ZeroRetriesTriesOnce(t *testing.T) {
	p := &scriptedProvider{outcomes: []outcome{
		{err: errors.New("overloaded")},
		{text: "never reached"},
	}}
	g := NewGenerator(p, "m", WithRetries(0), WithBackoff(time.Millisecond))

	_, err := g.Complete(context.Background(), "p", "s", 10, 0.3)
	require.Error(t, err)
	assert.Equal(t, ErrRetriesExhausted, types.CodeOf(err))
	assert.Len(t, p.requests, 1)
}

func TestGenerator_DoesNotRetryPermanentErrors(t *testing.T) {
	p := &scriptedProvider{outcomes: []outcome{
		{err: errors.New("invalid api key")},
		{text: "never reached"},
	}}
	g := NewGenerator(p, "m", WithRetries(5), WithBackoff(time.Millisecond))

	_, err := g.Complete(context.Background(), "p", "s", 10, 0.3)
	require.Error(t, err)
	assert.Equal(t, ErrProviderUnauthorized, types.CodeOf(err))
	assert.Len(t, p.requests, 1)
}

func TestGenerator_EmptyAndFilteredResponses(t *testing.T) {
	p := &scriptedProvider{outcomes: []outcome{{text: "   "}}}
	_, err := NewGenerator(p, "m", WithRetries(0)).Complete(context.Background(), "p", "s", 10, 0)
	assert.Equal(t, ErrEmptyResponse, types.CodeOf(err))

	p = &scriptedProvider{outcomes: []outcome{{text: "partial", finish: FinishReasonContentFilter}}}
	_, err = NewGenerator(p, "m", WithRetries(0)).Complete(context.Background(), "p", "s", 10, 0)
	assert.Equal(t, ErrContentFiltered, types.CodeOf(err))
}

func TestGenerator_RejectsInvalidTemperature(t *testing.T) {
	p := &scriptedProvider{}
	_, err := NewGenerator(p, "m").Complete(context.Background(), "p", "s", 10, 1.5)
	assert.Equal(t, ErrInvalidRequest, types.CodeOf(err))
	assert.Empty(t, p.requests)
}

func TestGenerator_CancelledDuringBackoff(t *testing.T) {
	p := &scriptedProvider{outcomes: []outcome{{err: errors.New("network unreachable")}}}
	g := NewGenerator(p, "m", WithRetries(3), WithBackoff(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := g.Complete(ctx, "p", "s", 10, 0)
	require.Error(t, err)
	assert.Equal(t, ErrContextCanceled, types.CodeOf(err))
}

func TestGenerator_RateLimit(t *testing.T) {
	p := &scriptedProvider{outcomes: []outcome{{text: "a"}, {text: "b"}}}
	g := NewGenerator(p, "m", WithRateLimit(20))

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := g.Complete(context.Background(), "p", "s", 10, 0)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
