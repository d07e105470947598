// Package tool provides the tool abstraction behind the graph tool server.
//
// A Tool is a named, stateless operation taking JSON-like arguments and
// returning a text payload. The Registry holds tools by name, executes them
// and keeps per-tool call statistics. The MCP server publishes every
// registered tool; the built-in Neo4j tools live in the builtins package.
//
//	registry := tool.NewRegistry()
//	if err := builtins.RegisterGraphTools(registry, client, builtins.GraphToolsConfig{}); err != nil {
//	    return err
//	}
//	out, err := registry.Execute(ctx, "read_neo4j_cypher", map[string]any{"query": "MATCH (n) RETURN n LIMIT 1"})
//
// All registry operations are safe for concurrent use.
package tool
