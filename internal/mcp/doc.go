// Package mcp connects the question-answering loop to the graph over the
// Model Context Protocol.
//
// NewServer publishes the tools of a tool.Registry on an MCP server. Client
// talks to such a server, in process or as a stdio subprocess, and Executor
// adapts a Client to rag.QueryExecutor and rag.SchemaProvider using the
// get_neo4j_schema, read_neo4j_cypher and write_neo4j_cypher tools. Any
// server exposing those three tools works, including the upstream
// mcp-neo4j-cypher server.
package mcp
