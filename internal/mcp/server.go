package mcp

import (
	"context"
	"io"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kg-road/roadrag/internal/observability"
	"github.com/kg-road/roadrag/internal/tool"
	"github.com/kg-road/roadrag/internal/types"
	"github.com/kg-road/roadrag/pkg/version"
)

// ServerName is announced to clients during initialization.
const ServerName = "roadrag-neo4j"

const serverInstructions = `Tools for a Neo4j graph of road-traffic incidents (event_record),
response plans (event_plan, event_plan_command), variable message signs (VMS)
and the road network (Link, Junction). Call get_neo4j_schema first, then
read_neo4j_cypher with a Cypher query and its params.`

// NewServer creates an MCP server exposing every tool in registry.
func NewServer(registry *tool.Registry, logger *observability.TracedLogger) *mcpserver.MCPServer {
	if logger == nil {
		logger = observability.NewTracedLogger(nil, "mcp-server")
	}

	s := mcpserver.NewMCPServer(
		ServerName,
		version.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(serverInstructions),
	)

	for _, d := range registry.List() {
		s.AddTool(toolDefinition(d), toolHandler(registry, d.Name, logger))
	}
	return s
}

func toolDefinition(d tool.ToolDescriptor) mcpgo.Tool {
	opts := []mcpgo.ToolOption{
		mcpgo.WithDescription(d.Description),
		mcpgo.WithReadOnlyHintAnnotation(d.ReadOnly),
		mcpgo.WithDestructiveHintAnnotation(!d.ReadOnly),
	}
	for _, a := range d.Arguments {
		props := []mcpgo.PropertyOption{mcpgo.Description(a.Description)}
		if a.Required {
			props = append(props, mcpgo.Required())
		}
		switch a.Type {
		case tool.ArgObject:
			opts = append(opts, mcpgo.WithObject(a.Name, props...))
		default:
			opts = append(opts, mcpgo.WithString(a.Name, props...))
		}
	}
	return mcpgo.NewTool(d.Name, opts...)
}

// toolHandler reports tool failures as error results so the caller sees
// the message; protocol errors are reserved for transport problems.
func toolHandler(registry *tool.Registry, name string, logger *observability.TracedLogger) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		out, err := registry.Execute(ctx, name, args)
		if err != nil {
			logger.Warn(ctx, "tool call failed", "tool", name, "error", err)
			return mcpgo.NewToolResultError(err.Error()), nil
		}
		logger.Debug(ctx, "tool call", "tool", name, "bytes", len(out))
		return mcpgo.NewToolResultText(out), nil
	}
}

// ServeStdio serves s over in and out until ctx is done or in is closed.
func ServeStdio(ctx context.Context, s *mcpserver.MCPServer, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return types.WrapError(ErrCodeServe, "stdio server stopped", err)
	}
	return nil
}
