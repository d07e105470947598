package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/kg-road/roadrag/internal/types"
)

// GraphClient provides an interface for graph database operations.
// Implementations must be safe for concurrent use.
type GraphClient interface {
	// Connect establishes a connection to the graph database.
	Connect(ctx context.Context) error

	// Close releases all resources and closes the database connection.
	Close(ctx context.Context) error

	// Health returns the current health status of the graph database connection.
	Health(ctx context.Context) types.HealthStatus

	// Query executes a Cypher query inside a read transaction.
	Query(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)

	// Write executes a Cypher query inside a write transaction.
	Write(ctx context.Context, cypher string, params map[string]any) (QueryResult, error)
}

// QueryResult represents the result of a Cypher query execution.
type QueryResult struct {
	// Records contains the result rows as maps of column name to value.
	Records []map[string]any

	// Columns contains the names of the columns in the result set, in
	// the order the query returned them.
	Columns []string

	// Summary contains metadata about the query execution.
	Summary QuerySummary
}

// QuerySummary provides metadata about query execution.
type QuerySummary struct {
	ExecutionTime        time.Duration
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
}

// Counters returns the write counters as a plain map, the shape reported
// by the write tool.
func (s QuerySummary) Counters() map[string]int {
	return map[string]int{
		"nodes_created":         s.NodesCreated,
		"nodes_deleted":         s.NodesDeleted,
		"relationships_created": s.RelationshipsCreated,
		"relationships_deleted": s.RelationshipsDeleted,
		"properties_set":        s.PropertiesSet,
	}
}

// RecordsJSON encodes the records as a JSON array of objects. Object keys
// follow Columns; keys missing from Columns are appended in sorted order.
func (r QueryResult) RecordsJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, rec := range r.Records {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeOrderedObject(&buf, rec, r.Columns); err != nil {
			return nil, types.WrapError(ErrCodeGraphResultParsing, "failed to encode record", err)
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeOrderedObject(buf *bytes.Buffer, rec map[string]any, columns []string) error {
	keys := orderedKeys(rec, columns)
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(rec[k])
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return nil
}

// GraphClientConfig contains configuration options for graph database clients.
type GraphClientConfig struct {
	// URI is the connection URI for the graph database. Encryption follows
	// the scheme: bolt://, bolt+s://, bolt+ssc://, neo4j://, neo4j+s://.
	URI string

	Username string
	Password string

	// Database name to connect to. Empty string uses the server default.
	Database string

	// MaxConnectionPoolSize limits the number of connections in the pool.
	// Zero or negative values use the driver default.
	MaxConnectionPoolSize int

	// ConnectionTimeout is the maximum time to wait for a connection.
	ConnectionTimeout time.Duration

	// MaxTransactionRetryTime is the maximum time to retry failed transactions.
	MaxTransactionRetryTime time.Duration

	// ConnectRetries is how many times Connect dials before giving up.
	ConnectRetries int
}

// DefaultConfig returns a GraphClientConfig with sensible defaults.
func DefaultConfig() GraphClientConfig {
	return GraphClientConfig{
		URI:                     "bolt://localhost:7687",
		Username:                "neo4j",
		Password:                "password",
		Database:                "neo4j",
		MaxConnectionPoolSize:   50,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 30 * time.Second,
		ConnectRetries:          5,
	}
}

// Validate checks if the configuration is valid.
func (c GraphClientConfig) Validate() error {
	if c.URI == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "URI cannot be empty")
	}
	if c.Username == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "Username cannot be empty")
	}
	if c.Password == "" {
		return types.NewError(ErrCodeGraphInvalidConfig, "Password cannot be empty")
	}
	if c.ConnectionTimeout <= 0 {
		return types.NewError(ErrCodeGraphInvalidConfig, "ConnectionTimeout must be positive")
	}
	if c.MaxTransactionRetryTime <= 0 {
		return types.NewError(ErrCodeGraphInvalidConfig, "MaxTransactionRetryTime must be positive")
	}
	return nil
}
