package rag

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kg-road/roadrag/internal/observability"
	"github.com/kg-road/roadrag/internal/prompt"
	"github.com/kg-road/roadrag/internal/types"
)

// JSONOnlyInstruction is the system instruction for every model call that
// must produce JSON.
const JSONOnlyInstruction = "Return valid JSON only. No additional text."

const (
	DefaultQueryTemperature = 0.1
	DefaultQueryMaxTokens   = 1000
)

const tracerName = "github.com/kg-road/roadrag/internal/rag"

// QueryRequest is the input of one query-generation call.
type QueryRequest struct {
	Question string
	Schema   string
	// FollowUp selects the follow-up prompt, which embeds Context and Aspect.
	FollowUp bool
	Context  string
	Aspect   string
}

// QueryGenerator turns a question into an Operation using the model.
type QueryGenerator struct {
	generator   AnswerGenerator
	prompts     *prompt.Renderer
	temperature float64
	maxTokens   int
	logger      *observability.TracedLogger
	metrics     *observability.RAGMetrics
	tracer      trace.Tracer
}

// QueryGeneratorOption configures a QueryGenerator.
type QueryGeneratorOption func(*QueryGenerator)

func WithQueryTemperature(t float64) QueryGeneratorOption {
	return func(g *QueryGenerator) { g.temperature = t }
}

func WithQueryMaxTokens(n int) QueryGeneratorOption {
	return func(g *QueryGenerator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

func WithQueryLogger(l *observability.TracedLogger) QueryGeneratorOption {
	return func(g *QueryGenerator) { g.logger = l }
}

func WithQueryMetrics(m *observability.RAGMetrics) QueryGeneratorOption {
	return func(g *QueryGenerator) { g.metrics = m }
}

// NewQueryGenerator creates a generator rendering prompts with prompts.
func NewQueryGenerator(generator AnswerGenerator, prompts *prompt.Renderer, opts ...QueryGeneratorOption) *QueryGenerator {
	g := &QueryGenerator{
		generator:   generator,
		prompts:     prompts,
		temperature: DefaultQueryTemperature,
		maxTokens:   DefaultQueryMaxTokens,
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = observability.NewTracedLogger(nil, "querygen")
	}
	return g
}

// Generate asks the model for an operation. Output that does not parse as
// an operation yields FallbackOperation with a nil error; only a failed
// model call or prompt rendering returns an error.
func (g *QueryGenerator) Generate(ctx context.Context, req QueryRequest) (Operation, error) {
	ctx, span := g.tracer.Start(ctx, "rag.generate_query", trace.WithAttributes(
		attribute.Bool("rag.follow_up", req.FollowUp),
		attribute.String("rag.aspect", req.Aspect),
	))
	defer span.End()

	data := prompt.CypherData{Schema: req.Schema, Question: req.Question}
	if req.FollowUp {
		data.Context = req.Context
		data.Aspect = req.Aspect
	}
	text, err := g.prompts.Cypher(req.FollowUp, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "prompt rendering failed")
		return Operation{}, err
	}

	output, err := g.generator.Complete(ctx, text, JSONOnlyInstruction, g.maxTokens, g.temperature)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query generation failed")
		return Operation{}, types.WrapError(ErrCodeGenerationFailed, "query generation call failed", err)
	}

	op, err := ParseOperation(output)
	if err != nil {
		g.logger.Warn(ctx, "model output is not a valid operation, using fallback", "error", err)
		g.logger.Debug(ctx, "rejected model output", "output", output)
		g.metrics.RecordFallback(ctx, string(types.CodeOf(err)))
		span.SetAttributes(attribute.Bool("rag.fallback", true))
		return FallbackOperation(), nil
	}

	span.SetAttributes(attribute.String("rag.operation", string(op.Kind)))
	return op, nil
}
