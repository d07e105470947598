// Package graph is the Neo4j access layer behind the road-traffic tools.
//
// GraphClient exposes the two execution paths the RAG loop can ask for:
// Query runs Cypher inside a read transaction and Write inside a write
// transaction. Both return a QueryResult whose records keep the column order
// reported by the server, so callers that render records as text (the MCP
// tools, the context formatter) see fields in the order the query produced
// them.
//
// # Usage
//
//	cfg := graph.DefaultConfig()
//	cfg.URI = "bolt://localhost:7687"
//	cfg.Password = os.Getenv("NEO4J_PASSWORD")
//
//	client, err := graph.NewNeo4jClient(cfg)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	res, err := client.Query(ctx,
//	    "MATCH (e:event_record) WHERE e.road_name = $road RETURN e.event_no, e.event_desc",
//	    map[string]any{"road": "Sheikh Zayed Road"},
//	)
//
// DescribeSchema introspects labels, relationship types and their properties
// using the built-in db.schema procedures, so no APOC install is required.
//
// # Testing
//
// MockGraphClient records every call and hands out configured results FIFO:
//
//	mock := graph.NewMockGraphClient()
//	mock.AddQueryResult(graph.QueryResult{
//	    Columns: []string{"road_name"},
//	    Records: []map[string]any{{"road_name": "Sheikh Zayed Road"}},
//	})
//
// Errors are *types.Error values carrying the GRAPH_* codes in errors.go.
package graph
