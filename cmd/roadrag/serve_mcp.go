package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kg-road/roadrag/internal/mcp"
)

var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve the Neo4j tools over MCP stdio",
	Long: `Serve get_neo4j_schema, read_neo4j_cypher and write_neo4j_cypher over
MCP on stdin/stdout. Another roadrag process can use it with
mcp.transport: stdio and mcp.command pointing at this binary.

Logs go to stderr; stdout carries only protocol messages.`,
	Args: cobra.NoArgs,
	RunE: runServeMCP,
}

var serveMCPReadOnly bool

func init() {
	serveMCPCmd.Flags().BoolVar(&serveMCPReadOnly, "read-only", false, "Do not expose write_neo4j_cypher")
}

func runServeMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := *appConfig
	if serveMCPReadOnly {
		cfg.MCP.ReadOnly = true
	}

	a, err := newObservedApp(ctx, &cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	srv, err := a.toolServer(ctx)
	if err != nil {
		return err
	}

	a.logger.Info(ctx, "serving neo4j tools over stdio", "uri", cfg.Neo4j.URI, "read_only", cfg.MCP.ReadOnly)
	return mcp.ServeStdio(ctx, srv, cmd.InOrStdin(), cmd.OutOrStdout())
}
