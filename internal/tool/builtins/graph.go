// Package builtins provides the Neo4j tools served over MCP.
package builtins

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kg-road/roadrag/internal/graph"
	"github.com/kg-road/roadrag/internal/tool"
	"github.com/kg-road/roadrag/internal/types"
)

// Tool names, shared with the upstream mcp-neo4j-cypher server.
const (
	SchemaToolName = "get_neo4j_schema"
	ReadToolName   = "read_neo4j_cypher"
	WriteToolName  = "write_neo4j_cypher"
)

// Argument names of the Cypher tools.
const (
	ArgQuery  = "query"
	ArgParams = "params"
)

const defaultMaxPatterns = 100

var writeClause = regexp.MustCompile(`(?i)\b(MERGE|CREATE|SET|DELETE|REMOVE|ADD)\b`)

// IsWriteQuery reports whether query contains a clause that modifies the graph.
func IsWriteQuery(query string) bool {
	return writeClause.MatchString(query)
}

// GraphToolsConfig configures the Neo4j tools.
type GraphToolsConfig struct {
	// MaxPatterns bounds the relationship patterns listed by the schema tool.
	MaxPatterns int
	// ReadOnly leaves out the write tool.
	ReadOnly bool
}

// RegisterGraphTools registers the schema, read and write tools on registry.
func RegisterGraphTools(registry *tool.Registry, client graph.GraphClient, cfg GraphToolsConfig) error {
	if cfg.MaxPatterns <= 0 {
		cfg.MaxPatterns = defaultMaxPatterns
	}

	tools := []tool.Tool{
		&SchemaTool{client: client, maxPatterns: cfg.MaxPatterns},
		&ReadCypherTool{client: client},
	}
	if !cfg.ReadOnly {
		tools = append(tools, &WriteCypherTool{client: client})
	}

	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

var cypherArguments = []tool.Argument{
	{Name: ArgQuery, Type: tool.ArgString, Description: "The Cypher query to execute", Required: true},
	{Name: ArgParams, Type: tool.ArgObject, Description: "Named parameters referenced as $name in the query"},
}

// SchemaTool describes node labels, relationship types and their properties.
type SchemaTool struct {
	client      graph.GraphClient
	maxPatterns int
}

func (t *SchemaTool) Name() string { return SchemaToolName }

func (t *SchemaTool) Description() string {
	return "List the node labels, relationship types and their properties in the Neo4j database."
}

func (t *SchemaTool) Tags() []string             { return []string{"neo4j", "schema"} }
func (t *SchemaTool) Arguments() []tool.Argument { return nil }
func (t *SchemaTool) ReadOnly() bool             { return true }

func (t *SchemaTool) Execute(ctx context.Context, _ map[string]any) (string, error) {
	schema, err := graph.DescribeSchema(ctx, t.client, t.maxPatterns)
	if err != nil {
		return "", err
	}
	return schema.String(), nil
}

func (t *SchemaTool) Health(ctx context.Context) types.HealthStatus {
	return t.client.Health(ctx)
}

// ReadCypherTool runs a read-only Cypher query and returns its records as a
// JSON array of objects.
type ReadCypherTool struct {
	client graph.GraphClient
}

func (t *ReadCypherTool) Name() string { return ReadToolName }

func (t *ReadCypherTool) Description() string {
	return "Execute a read Cypher query on the Neo4j database and return the records as JSON."
}

func (t *ReadCypherTool) Tags() []string             { return []string{"neo4j", "cypher", "read"} }
func (t *ReadCypherTool) Arguments() []tool.Argument { return cypherArguments }
func (t *ReadCypherTool) ReadOnly() bool             { return true }

func (t *ReadCypherTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, params := cypherArgs(args)
	if IsWriteQuery(query) {
		return "", types.NewError(tool.ErrToolInvalidInput, "only read queries are allowed by "+ReadToolName)
	}

	result, err := t.client.Query(ctx, query, params)
	if err != nil {
		return "", err
	}
	out, err := result.RecordsJSON()
	if err != nil {
		return "", types.WrapError(tool.ErrToolInvalidOutput, "failed to encode records", err)
	}
	return string(out), nil
}

func (t *ReadCypherTool) Health(ctx context.Context) types.HealthStatus {
	return t.client.Health(ctx)
}

// WriteCypherTool runs a Cypher query in a write transaction and returns
// the update counters as a one-record JSON array.
type WriteCypherTool struct {
	client graph.GraphClient
}

func (t *WriteCypherTool) Name() string { return WriteToolName }

func (t *WriteCypherTool) Description() string {
	return "Execute a write Cypher query on the Neo4j database and return the update counters."
}

func (t *WriteCypherTool) Tags() []string             { return []string{"neo4j", "cypher", "write"} }
func (t *WriteCypherTool) Arguments() []tool.Argument { return cypherArguments }
func (t *WriteCypherTool) ReadOnly() bool             { return false }

func (t *WriteCypherTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query, params := cypherArgs(args)

	result, err := t.client.Write(ctx, query, params)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal([]map[string]int{result.Summary.Counters()})
	if err != nil {
		return "", types.WrapError(tool.ErrToolInvalidOutput, "failed to encode counters", err)
	}
	return string(out), nil
}

func (t *WriteCypherTool) Health(ctx context.Context) types.HealthStatus {
	return t.client.Health(ctx)
}

func cypherArgs(args map[string]any) (string, map[string]any) {
	query, _ := args[ArgQuery].(string)
	params, _ := args[ArgParams].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}
	return strings.TrimSpace(query), params
}
