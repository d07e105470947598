package builtins

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kg-road/roadrag/internal/graph"
	"github.com/kg-road/roadrag/internal/tool"
	"github.com/kg-road/roadrag/internal/types"
)

func newRegistry(t *testing.T, client graph.GraphClient, cfg GraphToolsConfig) *tool.Registry {
	t.Helper()
	r := tool.NewRegistry()
	require.NoError(t, RegisterGraphTools(r, client, cfg))
	return r
}

func TestRegisterGraphTools(t *testing.T) {
	r := newRegistry(t, graph.NewMockGraphClient(), GraphToolsConfig{})

	var names []string
	for _, d := range r.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{SchemaToolName, ReadToolName, WriteToolName}, names)

	ro := newRegistry(t, graph.NewMockGraphClient(), GraphToolsConfig{ReadOnly: true})
	_, err := ro.Get(WriteToolName)
	assert.Equal(t, tool.ErrToolNotFound, types.CodeOf(err))
}

func TestReadCypherTool(t *testing.T) {
	client := graph.NewMockGraphClient()
	client.AddQueryResult(graph.QueryResult{
		Columns: []string{"road_name", "event_no"},
		Records: []map[string]any{{"event_no": "E1", "road_name": "Sheikh Zayed Road"}},
	})
	r := newRegistry(t, client, GraphToolsConfig{})

	out, err := r.Execute(t.Context(), ReadToolName, map[string]any{
		"query":  " MATCH (e:event_record) WHERE e.id = $id RETURN e.road_name AS road_name, e.event_no AS event_no ",
		"params": map[string]any{"id": "E1"},
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"road_name":"Sheikh Zayed Road","event_no":"E1"}]`, out)

	calls := client.GetCallsByMethod("Query")
	require.Len(t, calls, 1)
	assert.Equal(t, "MATCH (e:event_record) WHERE e.id = $id RETURN e.road_name AS road_name, e.event_no AS event_no", calls[0].Args[0])
	assert.Equal(t, map[string]any{"id": "E1"}, calls[0].Args[1])
}

func TestReadCypherTool_DefaultsParams(t *testing.T) {
	client := graph.NewMockGraphClient()
	r := newRegistry(t, client, GraphToolsConfig{})

	out, err := r.Execute(t.Context(), ReadToolName, map[string]any{"query": "MATCH (n) RETURN n LIMIT 0"})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
	assert.Equal(t, map[string]any{}, client.GetCallsByMethod("Query")[0].Args[1])
}

func TestReadCypherTool_RejectsWrites(t *testing.T) {
	client := graph.NewMockGraphClient()
	r := newRegistry(t, client, GraphToolsConfig{})

	_, err := r.Execute(t.Context(), ReadToolName, map[string]any{"query": "MATCH (n) DETACH DELETE n"})
	require.Error(t, err)
	assert.Equal(t, 0, client.CallCount())
}

func TestReadCypherTool_PropagatesGraphErrors(t *testing.T) {
	client := graph.NewMockGraphClient()
	client.AddQueryError(errors.New("Neo.ClientError.Statement.SyntaxError"))
	r := newRegistry(t, client, GraphToolsConfig{})

	_, err := r.Execute(t.Context(), ReadToolName, map[string]any{"query": "MATC"})
	require.Error(t, err)
	assert.Equal(t, tool.ErrToolExecutionFailed, types.CodeOf(err))
	assert.Contains(t, err.Error(), "SyntaxError")
}

func TestWriteCypherTool(t *testing.T) {
	client := graph.NewMockGraphClient()
	client.AddQueryResult(graph.QueryResult{Summary: graph.QuerySummary{NodesCreated: 1, PropertiesSet: 2}})
	r := newRegistry(t, client, GraphToolsConfig{})

	out, err := r.Execute(t.Context(), WriteToolName, map[string]any{
		"query":  "CREATE (n:Note {text: $text})",
		"params": map[string]any{"text": "closed"},
	})
	require.NoError(t, err)

	var counters []map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &counters))
	require.Len(t, counters, 1)
	assert.Equal(t, 1, counters[0]["nodes_created"])
	assert.Equal(t, 2, counters[0]["properties_set"])
	assert.Len(t, client.GetCallsByMethod("Write"), 1)
}

func TestSchemaTool(t *testing.T) {
	client := graph.NewMockGraphClient()
	client.AddQueryResult(graph.QueryResult{
		Columns: []string{"nodeLabels", "propertyName", "propertyTypes"},
		Records: []map[string]any{{
			"nodeLabels":    []any{"event_record"},
			"propertyName":  "road_name",
			"propertyTypes": []any{"String"},
		}},
	})
	client.AddQueryResult(graph.QueryResult{})
	client.AddQueryResult(graph.QueryResult{
		Columns: []string{"from", "rel", "to"},
		Records: []map[string]any{{"from": []any{"event_record"}, "rel": "HAS_PLAN", "to": []any{"event_plan"}}},
	})
	r := newRegistry(t, client, GraphToolsConfig{MaxPatterns: 7})

	out, err := r.Execute(t.Context(), SchemaToolName, nil)
	require.NoError(t, err)
	assert.Contains(t, out, `"event_record"`)
	assert.Contains(t, out, `"road_name": "String"`)
	assert.Contains(t, out, "HAS_PLAN")

	calls := client.GetCallsByMethod("Query")
	require.Len(t, calls, 3)
	assert.Equal(t, map[string]any{"limit": 7}, calls[2].Args[1])
}

func TestIsWriteQuery(t *testing.T) {
	tests := []struct {
		query string
		write bool
	}{
		{"MATCH (n) RETURN n", false},
		{"MATCH (n:event_record) WHERE n.created_at > 0 RETURN n", false},
		{"CREATE (n:X)", true},
		{"match (n) set n.x = 1", true},
		{"MERGE (a)-[:R]->(b)", true},
		{"MATCH (n) DETACH DELETE n", true},
		{"MATCH (n) REMOVE n.flag", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.write, IsWriteQuery(tt.query), tt.query)
	}
}
