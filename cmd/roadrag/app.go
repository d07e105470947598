package main

import (
	"context"
	"errors"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kg-road/roadrag/internal/config"
	"github.com/kg-road/roadrag/internal/graph"
	"github.com/kg-road/roadrag/internal/llm"
	"github.com/kg-road/roadrag/internal/llm/providers"
	"github.com/kg-road/roadrag/internal/mcp"
	"github.com/kg-road/roadrag/internal/observability"
	"github.com/kg-road/roadrag/internal/prompt"
	"github.com/kg-road/roadrag/internal/rag"
	"github.com/kg-road/roadrag/internal/tool"
	"github.com/kg-road/roadrag/internal/tool/builtins"
	"github.com/kg-road/roadrag/internal/types"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// app holds the collaborators shared by every controller the process builds.
type app struct {
	cfg    *config.Config
	logger *observability.TracedLogger

	tracer     *sdktrace.TracerProvider
	metrics    *observability.Metrics
	ragMetrics *observability.RAGMetrics

	graph    graph.GraphClient
	registry *tool.Registry
	client   *mcp.Client
	executor *mcp.Executor
	schema   *rag.SchemaCache

	provider  llm.LLMProvider
	generator *llm.Generator
	planner   *rag.Planner
	prompts   *prompt.Renderer
}

type appOptions struct {
	// withLLM builds the model side; schema inspection does not need it.
	withLLM bool
}

// newApp wires the process from cfg. On error everything already opened
// is closed.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (_ *app, err error) {
	a, err := newObservedApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
		}
	}()

	if err = a.connectTools(ctx); err != nil {
		return nil, err
	}
	a.executor = mcp.NewExecutor(a.client,
		mcp.WithTransportRetries(cfg.MCP.TransportRetries),
		mcp.WithRetryBackoff(cfg.MCP.RetryBackoff),
		mcp.WithExecutorLogger(a.logger),
	)
	a.schema = rag.NewSchemaCache(a.executor, cfg.RAG.SchemaTTL)

	if !opts.withLLM {
		return a, nil
	}

	if a.provider, err = providers.NewProvider(ctx, cfg.LLM); err != nil {
		return nil, types.WrapError(types.INIT_LLM_FAILED, "failed to create llm provider", err)
	}
	a.generator = llm.NewGenerator(a.provider, cfg.LLM.DefaultModel,
		llm.WithRetries(cfg.LLM.MaxRetries),
		llm.WithRateLimit(cfg.LLM.RequestsPerSecond),
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithMetrics(a.ragMetrics),
		llm.WithLogger(slog.Default()),
	)

	table := rag.DefaultAspectTable()
	if cfg.RAG.AspectTable != "" {
		if table, err = rag.LoadAspectTable(cfg.RAG.AspectTable); err != nil {
			return nil, err
		}
	}
	if a.planner, err = rag.NewPlanner(table); err != nil {
		return nil, err
	}

	var renderOpts []prompt.RendererOption
	if cfg.RAG.PromptDir != "" {
		renderOpts = append(renderOpts, prompt.WithTemplateDir(cfg.RAG.PromptDir))
	}
	if a.prompts, err = prompt.NewRenderer(renderOpts...); err != nil {
		return nil, err
	}

	return a, nil
}

// newObservedApp sets up tracing and metrics, the part every command
// shares.
func newObservedApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: observability.NewTracedLogger(slog.Default(), "roadrag"),
	}

	var err error
	if a.tracer, err = observability.InitTracing(ctx, cfg.Tracing); err != nil {
		return nil, err
	}
	if a.metrics, err = observability.InitMetrics(ctx, cfg.Metrics); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if a.ragMetrics, err = observability.NewRAGMetrics(a.metrics.Provider); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// connectTools reaches the Neo4j tool server, either by serving the tools
// in-process over a local graph connection or by spawning a stdio server.
func (a *app) connectTools(ctx context.Context) error {
	var err error
	switch a.cfg.MCP.Transport {
	case config.TransportStdio:
		a.client, err = mcp.NewStdioClient(ctx, a.cfg.MCP.Command, a.cfg.MCP.Env, a.cfg.MCP.Args...)
		return err
	default:
		srv, err := a.toolServer(ctx)
		if err != nil {
			return err
		}
		a.client, err = mcp.NewInProcessClient(ctx, srv)
		return err
	}
}

// toolServer connects to Neo4j and returns an MCP server exposing the
// graph tools.
func (a *app) toolServer(ctx context.Context) (*mcpserver.MCPServer, error) {
	client, err := graph.NewNeo4jClient(a.cfg.Neo4j.ClientConfig())
	if err != nil {
		return nil, types.WrapError(types.INIT_GRAPH_FAILED, "invalid neo4j configuration", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, types.WrapError(types.INIT_GRAPH_FAILED, "failed to connect to neo4j at "+a.cfg.Neo4j.URI, err)
	}
	a.graph = client

	a.registry = tool.NewRegistry(tool.WithRecorder(a.ragMetrics))
	if err := builtins.RegisterGraphTools(a.registry, client, builtins.GraphToolsConfig{
		MaxPatterns: a.cfg.RAG.MaxSchemaPatterns,
		ReadOnly:    a.cfg.MCP.ReadOnly,
	}); err != nil {
		return nil, err
	}
	return mcp.NewServer(a.registry, observability.NewTracedLogger(slog.Default(), "mcp")), nil
}

// newController builds a controller with its own session.
func (a *app) newController() (*rag.Controller, error) {
	return rag.NewController(rag.Dependencies{
		Executor:  a.executor,
		Generator: a.generator,
		Schema:    a.schema,
		Planner:   a.planner,
		Prompts:   a.prompts,
	},
		rag.WithQueryGeneration(a.cfg.RAG.QueryTemperature, a.cfg.RAG.QueryMaxTokens),
		rag.WithAnswerGeneration(a.cfg.RAG.AnswerTemperature, a.cfg.RAG.AnswerMaxTokens),
		rag.WithSession(&rag.SessionState{}),
		rag.WithLogger(observability.NewTracedLogger(slog.Default(), "rag")),
		rag.WithTracer(a.tracer.Tracer("github.com/kg-road/roadrag/internal/rag")),
		rag.WithMetrics(a.ragMetrics),
	)
}

// toolHealth reports the tool transport, and the registered tools when
// they are served in-process.
func (a *app) toolHealth(ctx context.Context) types.HealthStatus {
	if err := a.client.Ping(ctx); err != nil {
		return types.Unhealthy("tool server unreachable: " + err.Error())
	}
	if a.registry != nil {
		return a.registry.Health(ctx)
	}
	return types.Healthy("tool server reachable")
}

// Close releases everything newApp opened, in reverse order.
func (a *app) Close(ctx context.Context) {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.graph != nil {
		errs = append(errs, a.graph.Close(ctx))
	}
	errs = append(errs, a.metrics.Shutdown(ctx), observability.ShutdownTracing(ctx, a.tracer))
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn(ctx, "shutdown incomplete", "error", err)
	}
}
