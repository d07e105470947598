package mcp

import (
	"context"
	"time"

	"github.com/kg-road/roadrag/internal/observability"
	"github.com/kg-road/roadrag/internal/rag"
	"github.com/kg-road/roadrag/internal/tool/builtins"
	"github.com/kg-road/roadrag/internal/types"
)

// ToolCaller invokes a named tool. *Client implements it.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (rag.RawResult, error)
}

// Executor runs operations and reads the schema through the Neo4j tools.
// It implements rag.QueryExecutor and rag.SchemaProvider.
type Executor struct {
	caller  ToolCaller
	retries int
	backoff time.Duration
	logger  *observability.TracedLogger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTransportRetries sets how many times a retryable failure is retried.
func WithTransportRetries(n int) ExecutorOption {
	return func(e *Executor) {
		if n >= 0 {
			e.retries = n
		}
	}
}

// WithRetryBackoff sets the pause before a retry.
func WithRetryBackoff(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.backoff = d }
}

func WithExecutorLogger(l *observability.TracedLogger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an executor that retries transport failures once.
func NewExecutor(caller ToolCaller, opts ...ExecutorOption) *Executor {
	e := &Executor{
		caller:  caller,
		retries: 1,
		backoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = observability.NewTracedLogger(nil, "mcp-executor")
	}
	return e
}

// Execute sends writes to write_neo4j_cypher and everything else to
// read_neo4j_cypher.
func (e *Executor) Execute(ctx context.Context, kind rag.OperationKind, query string, params map[string]any) (rag.RawResult, error) {
	name := builtins.ReadToolName
	if kind == rag.KindWrite {
		name = builtins.WriteToolName
	}
	if params == nil {
		params = map[string]any{}
	}
	return e.call(ctx, name, map[string]any{
		builtins.ArgQuery:  query,
		builtins.ArgParams: params,
	})
}

// DescribeSchema returns the text of get_neo4j_schema.
func (e *Executor) DescribeSchema(ctx context.Context) (string, error) {
	raw, err := e.call(ctx, builtins.SchemaToolName, map[string]any{})
	if err != nil {
		return "", err
	}
	return joinText(raw), nil
}

func (e *Executor) call(ctx context.Context, name string, args map[string]any) (rag.RawResult, error) {
	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			e.logger.Warn(ctx, "retrying tool call", "tool", name, "attempt", attempt+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.backoff):
			}
		}

		raw, err := e.caller.CallTool(ctx, name, args)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !types.IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}
