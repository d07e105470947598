package config

import (
	"time"

	"github.com/kg-road/roadrag/internal/graph"
	"github.com/kg-road/roadrag/internal/llm"
	"github.com/kg-road/roadrag/internal/observability"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	gc := graph.DefaultConfig()

	return &Config{
		LLM: llm.ProviderConfig{
			Type:              llm.ProviderAnthropic,
			DefaultModel:      "claude-3-5-haiku-latest",
			Timeout:           60 * time.Second,
			MaxRetries:        3,
			RequestsPerSecond: 0,
		},
		Neo4j: Neo4jConfig{
			URI:                     gc.URI,
			Username:                gc.Username,
			Password:                gc.Password,
			Database:                gc.Database,
			MaxConnectionPoolSize:   gc.MaxConnectionPoolSize,
			ConnectionTimeout:       gc.ConnectionTimeout,
			MaxTransactionRetryTime: gc.MaxTransactionRetryTime,
			ConnectRetries:          gc.ConnectRetries,
		},
		MCP: MCPConfig{
			Transport:        TransportInProcess,
			TransportRetries: 1,
			RetryBackoff:     200 * time.Millisecond,
		},
		RAG: RAGConfig{
			QueryTemperature:  0.1,
			QueryMaxTokens:    1000,
			AnswerTemperature: 0.3,
			AnswerMaxTokens:   1000,
			SchemaTTL:         10 * time.Minute,
			MaxSchemaPatterns: 100,
		},
		API: APIConfig{
			Listen:          "127.0.0.1:8080",
			SessionTTL:      30 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: observability.LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: observability.TracingConfig{
			Enabled:     false,
			Provider:    "noop",
			ServiceName: "roadrag",
			SampleRate:  1.0,
		},
		Metrics: observability.MetricsConfig{
			Enabled:      true,
			Path:         "/metrics",
			PushInterval: time.Minute,
		},
	}
}
