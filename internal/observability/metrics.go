package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/kg-road/roadrag/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metric names. The Prometheus exporter rewrites dots to underscores and
// adds unit and _total suffixes.
const (
	MetricTurns             = "roadrag.turns"
	MetricAspects           = "roadrag.aspects"
	MetricQueryGenFallbacks = "roadrag.querygen.fallbacks"
	MetricLLMLatency        = "roadrag.llm.latency"
	MetricToolCalls         = "roadrag.tool.calls"
	MetricToolDuration      = "roadrag.tool.duration"
)

// Metrics bundles the meter provider with the HTTP handler exposing it.
type Metrics struct {
	Provider metric.MeterProvider
	Handler  http.Handler
	shutdown func(context.Context) error
}

// Shutdown stops the meter provider. Safe on a disabled Metrics.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.shutdown == nil {
		return nil
	}
	if err := m.shutdown(ctx); err != nil {
		return types.WrapError(ErrCodeShutdownFailed, "failed to shutdown meter provider", err)
	}
	return nil
}

// InitMetrics builds a meter provider backed by a private Prometheus
// registry, plus a periodic OTLP push when cfg.OTLPEndpoint is set. When
// disabled it returns a noop provider and a handler that answers 404.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{
			Provider: noop.NewMeterProvider(),
			Handler:  http.NotFoundHandler(),
		}, nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, types.WrapError(ErrCodeMetricsRegistration, "failed to create prometheus exporter", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithReader(exporter)}
	if cfg.OTLPEndpoint != "" {
		reader, err := otlpReader(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	provider := sdkmetric.NewMeterProvider(opts...)

	return &Metrics{
		Provider: provider,
		Handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		shutdown: provider.Shutdown,
	}, nil
}

func otlpReader(ctx context.Context, cfg MetricsConfig) (sdkmetric.Reader, error) {
	exportOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		exportOpts = append(exportOpts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, exportOpts...)
	if err != nil {
		return nil, types.WrapError(ErrCodeMetricsRegistration, "failed to create otlp metric exporter", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.PushInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.PushInterval))
	}
	return sdkmetric.NewPeriodicReader(exporter, readerOpts...), nil
}

// RAGMetrics holds the instruments recorded by the question-answering loop,
// the LLM generator and the tool layer. A nil *RAGMetrics records nothing.
type RAGMetrics struct {
	turns        metric.Int64Counter
	aspects      metric.Int64Counter
	fallbacks    metric.Int64Counter
	llmLatency   metric.Float64Histogram
	toolCalls    metric.Int64Counter
	toolDuration metric.Float64Histogram
}

// NewRAGMetrics creates the instruments on mp's "roadrag" meter.
func NewRAGMetrics(mp metric.MeterProvider) (*RAGMetrics, error) {
	meter := mp.Meter("github.com/kg-road/roadrag")

	var (
		m   RAGMetrics
		err error
	)
	if m.turns, err = meter.Int64Counter(MetricTurns,
		metric.WithDescription("Completed question turns by outcome")); err != nil {
		return nil, wrapInstrumentErr(MetricTurns, err)
	}
	if m.aspects, err = meter.Int64Counter(MetricAspects,
		metric.WithDescription("Aspect queries by aspect and outcome")); err != nil {
		return nil, wrapInstrumentErr(MetricAspects, err)
	}
	if m.fallbacks, err = meter.Int64Counter(MetricQueryGenFallbacks,
		metric.WithDescription("Generated operations replaced by the zero-row fallback")); err != nil {
		return nil, wrapInstrumentErr(MetricQueryGenFallbacks, err)
	}
	if m.llmLatency, err = meter.Float64Histogram(MetricLLMLatency,
		metric.WithDescription("LLM completion latency"), metric.WithUnit("s")); err != nil {
		return nil, wrapInstrumentErr(MetricLLMLatency, err)
	}
	if m.toolCalls, err = meter.Int64Counter(MetricToolCalls,
		metric.WithDescription("Graph tool invocations by tool and status")); err != nil {
		return nil, wrapInstrumentErr(MetricToolCalls, err)
	}
	if m.toolDuration, err = meter.Float64Histogram(MetricToolDuration,
		metric.WithDescription("Graph tool latency"), metric.WithUnit("s")); err != nil {
		return nil, wrapInstrumentErr(MetricToolDuration, err)
	}
	return &m, nil
}

func wrapInstrumentErr(name string, err error) error {
	return types.WrapError(ErrCodeMetricsRegistration, "failed to create instrument "+name, err)
}

// RecordTurn counts one finished turn. outcome is answered, no_information or failed.
func (m *RAGMetrics) RecordTurn(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordAspect counts one aspect query.
func (m *RAGMetrics) RecordAspect(ctx context.Context, aspect, outcome string) {
	if m == nil {
		return
	}
	m.aspects.Add(ctx, 1, metric.WithAttributes(
		attribute.String("aspect", aspect),
		attribute.String("outcome", outcome),
	))
}

// RecordFallback counts one fallback operation with the reason it was used.
func (m *RAGMetrics) RecordFallback(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordLLMCall records one completion attempt.
func (m *RAGMetrics) RecordLLMCall(ctx context.Context, provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.llmLatency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", statusOf(err)),
	))
}

// RecordToolCall records one tool invocation.
func (m *RAGMetrics) RecordToolCall(ctx context.Context, tool string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", statusOf(err)),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, d.Seconds(), attrs)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
