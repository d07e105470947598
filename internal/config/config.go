package config

import (
	"time"

	"github.com/kg-road/roadrag/internal/graph"
	"github.com/kg-road/roadrag/internal/llm"
	"github.com/kg-road/roadrag/internal/observability"
)

// Config is the root configuration structure for roadrag.
type Config struct {
	LLM     llm.ProviderConfig          `mapstructure:"llm" yaml:"llm"`
	Neo4j   Neo4jConfig                 `mapstructure:"neo4j" yaml:"neo4j"`
	MCP     MCPConfig                   `mapstructure:"mcp" yaml:"mcp"`
	RAG     RAGConfig                   `mapstructure:"rag" yaml:"rag"`
	API     APIConfig                   `mapstructure:"api" yaml:"api"`
	Logging observability.LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Tracing observability.TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Metrics observability.MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// Neo4jConfig holds the graph database connection settings.
type Neo4jConfig struct {
	URI                     string        `mapstructure:"uri" yaml:"uri" validate:"required"`
	Username                string        `mapstructure:"username" yaml:"username" validate:"required"`
	Password                string        `mapstructure:"password" yaml:"password" validate:"required"`
	Database                string        `mapstructure:"database" yaml:"database"`
	MaxConnectionPoolSize   int           `mapstructure:"max_pool_size" yaml:"max_pool_size" validate:"gte=0"`
	ConnectionTimeout       time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout" validate:"gt=0"`
	MaxTransactionRetryTime time.Duration `mapstructure:"max_retry_time" yaml:"max_retry_time" validate:"gt=0"`
	ConnectRetries          int           `mapstructure:"connect_retries" yaml:"connect_retries" validate:"gte=1"`
}

// ClientConfig converts the section into the graph client's configuration.
func (c Neo4jConfig) ClientConfig() graph.GraphClientConfig {
	return graph.GraphClientConfig{
		URI:                     c.URI,
		Username:                c.Username,
		Password:                c.Password,
		Database:                c.Database,
		MaxConnectionPoolSize:   c.MaxConnectionPoolSize,
		ConnectionTimeout:       c.ConnectionTimeout,
		MaxTransactionRetryTime: c.MaxTransactionRetryTime,
		ConnectRetries:          c.ConnectRetries,
	}
}

// MCP transports.
const (
	TransportInProcess = "inprocess"
	TransportStdio     = "stdio"
)

// MCPConfig selects how the controller reaches the Neo4j tool server.
// With the stdio transport, Command is spawned and spoken to over its
// standard streams; Env entries use KEY=VALUE form.
type MCPConfig struct {
	Transport string   `mapstructure:"transport" yaml:"transport" validate:"required,oneof=inprocess stdio"`
	Command   string   `mapstructure:"command" yaml:"command,omitempty"`
	Args      []string `mapstructure:"args" yaml:"args,omitempty"`
	Env       []string `mapstructure:"env" yaml:"env,omitempty"`

	// TransportRetries is how many extra attempts a tool call gets after a
	// transport failure.
	TransportRetries int           `mapstructure:"transport_retries" yaml:"transport_retries" validate:"gte=0,lte=5"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff" validate:"gte=0"`

	// ReadOnly withholds the write tool from the served tool set.
	ReadOnly bool `mapstructure:"read_only" yaml:"read_only"`
}

// RAGConfig tunes the iterative retrieval loop.
type RAGConfig struct {
	// AspectTable points at a YAML aspect table; empty uses the built-in one.
	AspectTable string `mapstructure:"aspect_table" yaml:"aspect_table,omitempty"`

	// PromptDir overrides the embedded prompt templates by file name.
	PromptDir string `mapstructure:"prompt_dir" yaml:"prompt_dir,omitempty"`

	QueryTemperature  float64 `mapstructure:"query_temperature" yaml:"query_temperature" validate:"gte=0,lte=2"`
	QueryMaxTokens    int     `mapstructure:"query_max_tokens" yaml:"query_max_tokens" validate:"gte=1"`
	AnswerTemperature float64 `mapstructure:"answer_temperature" yaml:"answer_temperature" validate:"gte=0,lte=2"`
	AnswerMaxTokens   int     `mapstructure:"answer_max_tokens" yaml:"answer_max_tokens" validate:"gte=1"`

	// SchemaTTL is how long a schema description is reused; zero keeps it
	// for the process lifetime.
	SchemaTTL time.Duration `mapstructure:"schema_ttl" yaml:"schema_ttl" validate:"gte=0"`

	// MaxSchemaPatterns caps the relationship patterns sampled for the schema.
	MaxSchemaPatterns int `mapstructure:"max_schema_patterns" yaml:"max_schema_patterns" validate:"gte=1"`
}

// APIConfig configures the HTTP API served by `roadrag serve`.
type APIConfig struct {
	Listen          string        `mapstructure:"listen" yaml:"listen" validate:"required"`
	SessionTTL      time.Duration `mapstructure:"session_ttl" yaml:"session_ttl" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
}
