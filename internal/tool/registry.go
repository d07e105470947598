package tool

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kg-road/roadrag/internal/observability"
	"github.com/kg-road/roadrag/internal/types"
)

// Registry holds tools by name and executes them with metrics.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	metrics map[string]*ToolMetrics

	recorder *observability.RAGMetrics
	tracer   trace.Tracer
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRecorder also reports executions to the OpenTelemetry instruments.
func WithRecorder(m *observability.RAGMetrics) RegistryOption {
	return func(r *Registry) { r.recorder = m }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:   make(map[string]Tool),
		metrics: make(map[string]*ToolMetrics),
		tracer:  otel.Tracer("github.com/kg-road/roadrag/internal/tool"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return types.NewError(ErrToolInvalidInput, "tool cannot be nil")
	}

	name := t.Name()
	if name == "" {
		return types.NewError(ErrToolInvalidInput, "tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return types.NewError(ErrToolAlreadyExists, fmt.Sprintf("tool %q already registered", name))
	}

	r.tools[name] = t
	r.metrics[name] = &ToolMetrics{}
	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return types.NewError(ErrToolNotFound, fmt.Sprintf("tool %q not found", name))
	}
	delete(r.tools, name)
	delete(r.metrics, name)
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, exists := r.tools[name]; exists {
		return t, nil
	}
	return nil, types.NewError(ErrToolNotFound, fmt.Sprintf("tool %q not found", name))
}

// List returns descriptors for all tools, sorted by name.
func (r *Registry) List() []ToolDescriptor {
	return r.filter(func(Tool) bool { return true })
}

// ListByTag returns descriptors for tools carrying tag, sorted by name.
func (r *Registry) ListByTag(tag string) []ToolDescriptor {
	return r.filter(func(t Tool) bool { return slices.Contains(t.Tags(), tag) })
}

func (r *Registry) filter(keep func(Tool) bool) []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		if keep(t) {
			descriptors = append(descriptors, NewToolDescriptor(t))
		}
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })
	return descriptors
}

// Execute runs a tool by name, checking required arguments first.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	t, err := r.Get(name)
	if err != nil {
		return "", err
	}

	if err := checkArguments(t, args); err != nil {
		return "", err
	}

	ctx, span := r.tracer.Start(ctx, "tool.execute", trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	start := time.Now()
	output, execErr := t.Execute(ctx, args)
	duration := time.Since(start)

	r.mu.Lock()
	if m, exists := r.metrics[name]; exists {
		if execErr != nil {
			m.RecordFailure(duration)
		} else {
			m.RecordSuccess(duration)
		}
	}
	r.mu.Unlock()
	r.recorder.RecordToolCall(ctx, name, duration, execErr)

	if execErr != nil {
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())
		return "", types.WrapError(ErrToolExecutionFailed, fmt.Sprintf("tool %q execution failed", name), execErr)
	}
	return output, nil
}

func checkArguments(t Tool, args map[string]any) error {
	for _, a := range t.Arguments() {
		v, ok := args[a.Name]
		if !ok || v == nil {
			if a.Required {
				return types.NewError(ErrToolInvalidInput, fmt.Sprintf("tool %q requires argument %q", t.Name(), a.Name))
			}
			continue
		}
		switch a.Type {
		case ArgString:
			if _, ok := v.(string); !ok {
				return types.NewError(ErrToolInvalidInput, fmt.Sprintf("argument %q must be a string", a.Name))
			}
		case ArgObject:
			if _, ok := v.(map[string]any); !ok {
				return types.NewError(ErrToolInvalidInput, fmt.Sprintf("argument %q must be an object", a.Name))
			}
		}
	}
	return nil
}

// Health is healthy when every tool is, degraded when some are, and
// unhealthy when none are or the registry is empty.
func (r *Registry) Health(ctx context.Context) types.HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.tools) == 0 {
		return types.Unhealthy("no tools registered")
	}

	healthy := 0
	for _, t := range r.tools {
		if t.Health(ctx).IsHealthy() {
			healthy++
		}
	}

	total := len(r.tools)
	switch healthy {
	case total:
		return types.Healthy(fmt.Sprintf("all %d tools healthy", total))
	case 0:
		return types.Unhealthy(fmt.Sprintf("all %d tools unhealthy", total))
	default:
		return types.Degraded(fmt.Sprintf("%d/%d tools healthy", healthy, total))
	}
}

// ToolHealth returns the health of one tool, unhealthy if it is unknown.
func (r *Registry) ToolHealth(ctx context.Context, name string) types.HealthStatus {
	t, err := r.Get(name)
	if err != nil {
		return types.Unhealthy(fmt.Sprintf("tool %q not found", name))
	}
	return t.Health(ctx)
}

// Metrics returns a copy of the statistics of one tool.
func (r *Registry) Metrics(name string) (ToolMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.metrics[name]
	if !exists {
		return ToolMetrics{}, types.NewError(ErrToolNotFound, fmt.Sprintf("tool %q not found", name))
	}
	return *m, nil
}
