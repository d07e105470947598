package graph

import (
	"context"
	"sync"
	"time"

	"github.com/kg-road/roadrag/internal/types"
)

// MockCall represents a recorded method call on the mock graph client.
type MockCall struct {
	Method    string
	Args      []any
	Timestamp time.Time
}

// MockGraphClient is a mock implementation of GraphClient for testing.
// Query and Write share one FIFO of configured results.
type MockGraphClient struct {
	mu sync.Mutex

	connected    bool
	healthStatus types.HealthStatus
	calls        []MockCall

	results      []QueryResult
	errs         []error
	connectError error
}

// NewMockGraphClient creates a connected mock graph client.
func NewMockGraphClient() *MockGraphClient {
	return &MockGraphClient{
		connected:    true,
		healthStatus: types.Healthy("mock graph client"),
	}
}

func (m *MockGraphClient) record(method string, args ...any) {
	m.calls = append(m.calls, MockCall{Method: method, Args: args, Timestamp: time.Now()})
}

// Connect records the call and simulates connection.
func (m *MockGraphClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Connect")
	if m.connectError != nil {
		return m.connectError
	}
	m.connected = true
	return nil
}

// Close records the call and simulates disconnection.
func (m *MockGraphClient) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Close")
	m.connected = false
	return nil
}

// Health records the call and returns the configured health status.
func (m *MockGraphClient) Health(ctx context.Context) types.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record("Health")
	if !m.connected {
		return types.Unhealthy("not connected")
	}
	return m.healthStatus
}

// Query records the call and returns the next configured result.
func (m *MockGraphClient) Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return m.next("Query", cypher, params)
}

// Write records the call and returns the next configured result.
func (m *MockGraphClient) Write(ctx context.Context, cypher string, params map[string]any) (QueryResult, error) {
	return m.next("Write", cypher, params)
}

func (m *MockGraphClient) next(method, cypher string, params map[string]any) (QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.record(method, cypher, params)

	if !m.connected {
		return QueryResult{}, types.NewError(ErrCodeGraphConnectionClosed, "not connected")
	}

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return QueryResult{}, err
		}
	}

	if len(m.results) > 0 {
		result := m.results[0]
		m.results = m.results[1:]
		return result, nil
	}

	return QueryResult{Records: []map[string]any{}, Columns: []string{}}, nil
}

// AddQueryResult appends a result to the FIFO.
func (m *MockGraphClient) AddQueryResult(result QueryResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}

// AddQueryError queues an error for the next call. A nil entry lets the
// call fall through to the result FIFO.
func (m *MockGraphClient) AddQueryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
}

func (m *MockGraphClient) SetHealthStatus(status types.HealthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthStatus = status
}

func (m *MockGraphClient) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectError = err
}

// GetCallsByMethod returns recorded calls for one method name.
func (m *MockGraphClient) GetCallsByMethod(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []MockCall
	for _, c := range m.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// CallCount returns the total number of recorded calls.
func (m *MockGraphClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
