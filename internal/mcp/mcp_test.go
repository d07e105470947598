package mcp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kg-road/roadrag/internal/graph"
	"github.com/kg-road/roadrag/internal/rag"
	"github.com/kg-road/roadrag/internal/tool"
	"github.com/kg-road/roadrag/internal/tool/builtins"
	"github.com/kg-road/roadrag/internal/types"
)

func newInProcess(t *testing.T, client graph.GraphClient) *Client {
	t.Helper()
	registry := tool.NewRegistry()
	require.NoError(t, builtins.RegisterGraphTools(registry, client, builtins.GraphToolsConfig{}))

	c, err := NewInProcessClient(t.Context(), NewServer(registry, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_ListTools(t *testing.T) {
	c := newInProcess(t, graph.NewMockGraphClient())

	names, err := c.ListTools(t.Context())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{builtins.SchemaToolName, builtins.ReadToolName, builtins.WriteToolName}, names)

	name, _ := c.ServerInfo()
	assert.Equal(t, ServerName, name)
	assert.NoError(t, c.Ping(t.Context()))
}

func TestExecutor_ReadRoundTrip(t *testing.T) {
	g := graph.NewMockGraphClient()
	g.AddQueryResult(graph.QueryResult{
		Columns: []string{"event_no", "road_name"},
		Records: []map[string]any{{"event_no": "E1", "road_name": "Sheikh Zayed Road"}},
	})
	exec := NewExecutor(newInProcess(t, g))

	raw, err := exec.Execute(t.Context(), rag.KindRead, "MATCH (e:event_record) WHERE e.id = $id RETURN e.event_no AS event_no, e.road_name AS road_name", map[string]any{"id": "E1"})
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, `[{"event_no":"E1","road_name":"Sheikh Zayed Road"}]`, raw[0].Text)

	formatted := rag.FormatContext(raw)
	assert.Equal(t, rag.OutcomeRendered, formatted.Outcome)
	assert.Contains(t, formatted.Text, `"road_name": "Sheikh Zayed Road"`)

	calls := g.GetCallsByMethod("Query")
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"id": "E1"}, calls[0].Args[1])
}

func TestExecutor_WriteUsesWriteTool(t *testing.T) {
	g := graph.NewMockGraphClient()
	g.AddQueryResult(graph.QueryResult{Summary: graph.QuerySummary{NodesCreated: 1}})
	exec := NewExecutor(newInProcess(t, g))

	raw, err := exec.Execute(t.Context(), rag.KindWrite, "CREATE (n:Note)", nil)
	require.NoError(t, err)
	assert.Contains(t, raw[0].Text, `"nodes_created":1`)
	assert.Len(t, g.GetCallsByMethod("Write"), 1)
	assert.Empty(t, g.GetCallsByMethod("Query"))
}

func TestExecutor_ToolErrorIsNotRetried(t *testing.T) {
	g := graph.NewMockGraphClient()
	g.AddQueryError(errors.New("Neo.ClientError.Statement.SyntaxError"))
	exec := NewExecutor(newInProcess(t, g), WithRetryBackoff(time.Millisecond))

	_, err := exec.Execute(t.Context(), rag.KindRead, "MATC (n)", nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeToolError, types.CodeOf(err))
	assert.Contains(t, err.Error(), "SyntaxError")
	assert.Len(t, g.GetCallsByMethod("Query"), 1)
}

func TestExecutor_DescribeSchema(t *testing.T) {
	g := graph.NewMockGraphClient()
	g.AddQueryResult(graph.QueryResult{
		Records: []map[string]any{{"nodeLabels": []any{"VMS"}, "propertyName": "EQT_NO", "propertyTypes": []any{"String"}}},
	})
	exec := NewExecutor(newInProcess(t, g))

	schema, err := exec.DescribeSchema(t.Context())
	require.NoError(t, err)
	assert.Contains(t, schema, `"VMS"`)
	assert.Contains(t, schema, `"EQT_NO": "String"`)
}

func TestClient_ClosedClient(t *testing.T) {
	c := newInProcess(t, graph.NewMockGraphClient())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.CallTool(t.Context(), builtins.ReadToolName, map[string]any{"query": "MATCH (n) RETURN n"})
	assert.Equal(t, ErrCodeClientClosed, types.CodeOf(err))
}

func TestNewStdioClient_RequiresCommand(t *testing.T) {
	_, err := NewStdioClient(t.Context(), " ", nil)
	assert.Equal(t, ErrCodeClientInit, types.CodeOf(err))
}

// flakyCaller fails with the queued errors before succeeding.
type flakyCaller struct {
	mu    sync.Mutex
	errs  []error
	calls []string
}

func (f *flakyCaller) CallTool(_ context.Context, name string, _ map[string]any) (rag.RawResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return rag.RawResult{rag.TextBlock("[]")}, nil
}

func TestExecutor_RetriesTransportOnce(t *testing.T) {
	transient := types.NewRetryableError(ErrCodeTransport, "pipe closed")

	caller := &flakyCaller{errs: []error{transient}}
	exec := NewExecutor(caller, WithRetryBackoff(time.Millisecond))
	raw, err := exec.Execute(t.Context(), rag.KindRead, "MATCH (n) RETURN n", nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw[0].Text)
	assert.Len(t, caller.calls, 2)

	caller = &flakyCaller{errs: []error{transient, transient, transient}}
	exec = NewExecutor(caller, WithRetryBackoff(time.Millisecond))
	_, err = exec.Execute(t.Context(), rag.KindRead, "MATCH (n) RETURN n", nil)
	require.Error(t, err)
	assert.Len(t, caller.calls, 2)

	caller = &flakyCaller{errs: []error{transient}}
	exec = NewExecutor(caller, WithTransportRetries(0))
	_, err = exec.Execute(t.Context(), rag.KindRead, "MATCH (n) RETURN n", nil)
	require.Error(t, err)
	assert.Len(t, caller.calls, 1)
}

func TestExecutor_CanceledDuringBackoff(t *testing.T) {
	caller := &flakyCaller{errs: []error{types.NewRetryableError(ErrCodeTransport, "pipe closed")}}
	exec := NewExecutor(caller, WithRetryBackoff(time.Hour))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := exec.Execute(ctx, rag.KindRead, "MATCH (n) RETURN n", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, caller.calls, 1)
}
