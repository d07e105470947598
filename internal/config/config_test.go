package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kg-road/roadrag/internal/llm"
	"github.com/kg-road/roadrag/internal/types"
)

// isolateEnv blanks every variable the loader consults so the host
// environment cannot leak into assertions.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, envs := range legacyEnv {
		for _, name := range envs {
			t.Setenv(name, "")
		}
	}
	for _, name := range []string{"ROADRAG_LLM_MODEL", "ROADRAG_LLM_PROVIDER", "ROADRAG_RAG_SCHEMA_TTL", "ROADRAG_MCP_TRANSPORT"} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newLoader() ConfigLoader {
	return NewConfigLoader(NewValidator())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, llm.ProviderAnthropic, cfg.LLM.Type)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)

	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database)

	assert.Equal(t, TransportInProcess, cfg.MCP.Transport)
	assert.Equal(t, 1, cfg.MCP.TransportRetries)

	assert.InDelta(t, 0.1, cfg.RAG.QueryTemperature, 1e-9)
	assert.InDelta(t, 0.3, cfg.RAG.AnswerTemperature, 1e-9)
	assert.Equal(t, 1000, cfg.RAG.QueryMaxTokens)
	assert.Equal(t, 1000, cfg.RAG.AnswerMaxTokens)
	assert.Empty(t, cfg.RAG.AspectTable)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	require.NoError(t, NewValidator().Validate(cfg))
}

func TestNeo4jConfig_ClientConfig(t *testing.T) {
	cfg := DefaultConfig().Neo4j
	cfg.URI = "neo4j+s://graph.example:7687"
	cfg.ConnectRetries = 2

	cc := cfg.ClientConfig()
	assert.Equal(t, "neo4j+s://graph.example:7687", cc.URI)
	assert.Equal(t, 2, cc.ConnectRetries)
	assert.Equal(t, cfg.ConnectionTimeout, cc.ConnectionTimeout)
	require.NoError(t, cc.Validate())
}

func TestLoadValidConfig(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `
llm:
  provider: openai
  model: gpt-4o-mini
  timeout: 45s
  max_retries: 2

neo4j:
  uri: bolt://db:7687
  username: reader
  password: secret
  database: traffic

mcp:
  transport: stdio
  command: uvx
  args: ["mcp-neo4j-cypher", "--transport", "stdio"]
  env: ["NEO4J_URI=bolt://db:7687"]

rag:
  aspect_table: /etc/roadrag/aspects.yaml
  query_temperature: 0.2
  schema_ttl: 2m

api:
  listen: 0.0.0.0:9000
`)

	cfg, err := newLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.Type)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.DefaultModel)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)

	assert.Equal(t, "bolt://db:7687", cfg.Neo4j.URI)
	assert.Equal(t, "reader", cfg.Neo4j.Username)
	assert.Equal(t, "traffic", cfg.Neo4j.Database)

	assert.Equal(t, TransportStdio, cfg.MCP.Transport)
	assert.Equal(t, "uvx", cfg.MCP.Command)
	assert.Equal(t, []string{"mcp-neo4j-cypher", "--transport", "stdio"}, cfg.MCP.Args)
	assert.Equal(t, []string{"NEO4J_URI=bolt://db:7687"}, cfg.MCP.Env)

	assert.Equal(t, "/etc/roadrag/aspects.yaml", cfg.RAG.AspectTable)
	assert.InDelta(t, 0.2, cfg.RAG.QueryTemperature, 1e-9)
	assert.Equal(t, 2*time.Minute, cfg.RAG.SchemaTTL)
	assert.Equal(t, "0.0.0.0:9000", cfg.API.Listen)

	// Keys absent from the file keep their defaults.
	assert.InDelta(t, 0.3, cfg.RAG.AnswerTemperature, 1e-9)
	assert.Equal(t, 1000, cfg.RAG.AnswerMaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Neo4j.ConnectionTimeout)
	assert.Equal(t, 30*time.Minute, cfg.API.SessionTTL)
}

func TestLoadWithEnvironmentVariableInterpolation(t *testing.T) {
	isolateEnv(t)
	t.Setenv("TEST_ROADRAG_PASSWORD", "from-env")
	t.Setenv("TEST_ROADRAG_HOST", "graph.internal")

	path := writeConfig(t, `
neo4j:
  uri: bolt://${TEST_ROADRAG_HOST}:7687
  password: ${TEST_ROADRAG_PASSWORD}
`)

	cfg, err := newLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt://graph.internal:7687", cfg.Neo4j.URI)
	assert.Equal(t, "from-env", cfg.Neo4j.Password)
}

func TestLoadWithMissingEnvironmentVariables(t *testing.T) {
	isolateEnv(t)
	t.Setenv("TEST_ROADRAG_UNSET", "")

	path := writeConfig(t, `
neo4j:
  password: ${TEST_ROADRAG_UNSET}
`)

	cfg, err := newLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${TEST_ROADRAG_UNSET}", cfg.Neo4j.Password)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `
llm:
  model: from-file
neo4j:
  uri: bolt://file:7687
`)

	t.Run("prefixed variable wins over file", func(t *testing.T) {
		t.Setenv("ROADRAG_LLM_MODEL", "from-env")
		t.Setenv("ROADRAG_RAG_SCHEMA_TTL", "90s")

		cfg, err := newLoader().Load(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.LLM.DefaultModel)
		assert.Equal(t, 90*time.Second, cfg.RAG.SchemaTTL)
	})

	t.Run("unprefixed neo4j variables are honoured", func(t *testing.T) {
		t.Setenv("NEO4J_URI", "bolt://legacy:7687")
		t.Setenv("NEO4J_PASSWORD", "legacy-secret")

		cfg, err := newLoader().Load(path)
		require.NoError(t, err)
		assert.Equal(t, "bolt://legacy:7687", cfg.Neo4j.URI)
		assert.Equal(t, "legacy-secret", cfg.Neo4j.Password)
	})

	t.Run("prefixed variable wins over unprefixed", func(t *testing.T) {
		t.Setenv("NEO4J_URI", "bolt://legacy:7687")
		t.Setenv("ROADRAG_NEO4J_URI", "bolt://prefixed:7687")

		cfg, err := newLoader().Load(path)
		require.NoError(t, err)
		assert.Equal(t, "bolt://prefixed:7687", cfg.Neo4j.URI)
	})

	t.Run("api key is read from the environment", func(t *testing.T) {
		t.Setenv("ROADRAG_LLM_API_KEY", "sk-env")

		cfg, err := newLoader().Load(path)
		require.NoError(t, err)
		assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	})
}

func TestLoadWithDefaults_FileNotFound(t *testing.T) {
	isolateEnv(t)

	cfg, err := newLoader().LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = newLoader().LoadWithDefaults("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Neo4j, cfg.Neo4j)
}

func TestLoadWithDefaults_FileExists(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "logging:\n  level: debug\n")

	cfg, err := newLoader().LoadWithDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ExpandsRAGPaths(t *testing.T) {
	isolateEnv(t)
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	path := writeConfig(t, "rag:\n  aspect_table: ~/.roadrag/aspects.yaml\n  prompt_dir: ./prompts/\n")

	cfg, err := newLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".roadrag", "aspects.yaml"), cfg.RAG.AspectTable)
	assert.Equal(t, "prompts", cfg.RAG.PromptDir)
}

func TestLoadInvalidFilePath(t *testing.T) {
	_, err := newLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, types.CONFIG_NOT_FOUND, types.CodeOf(err))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "llm: [unterminated\n")

	_, err := newLoader().Load(path)
	require.Error(t, err)
	assert.Equal(t, types.CONFIG_LOAD_FAILED, types.CodeOf(err))
}

func TestLoad_UnmarshalError(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "rag:\n  query_max_tokens: lots\n")

	_, err := newLoader().Load(path)
	require.Error(t, err)
	assert.Equal(t, types.CONFIG_PARSE_FAILED, types.CodeOf(err))
}

func TestValidation_NilConfig(t *testing.T) {
	err := NewValidator().Validate(nil)
	require.Error(t, err)
	assert.Equal(t, types.CONFIG_VALIDATION_FAILED, types.CodeOf(err))
}

func TestValidation_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "unknown transport",
			mutate: func(c *Config) { c.MCP.Transport = "websocket" },
			want:   "mcp.transport must be one of [inprocess stdio] (got: websocket)",
		},
		{
			name:   "stdio without command",
			mutate: func(c *Config) { c.MCP.Transport = TransportStdio },
			want:   "mcp.command is required when mcp.transport is 'stdio'",
		},
		{
			name:   "malformed env entry",
			mutate: func(c *Config) { c.MCP.Env = []string{"NEO4J_URI"} },
			want:   `mcp.env entries must be KEY=VALUE (got: "NEO4J_URI")`,
		},
		{
			name:   "temperature too high",
			mutate: func(c *Config) { c.RAG.QueryTemperature = 2.5 },
			want:   "rag.query_temperature must be at most 2",
		},
		{
			name:   "missing neo4j uri",
			mutate: func(c *Config) { c.Neo4j.URI = "" },
			want:   "neo4j.uri is required",
		},
		{
			name:   "non-positive connection timeout",
			mutate: func(c *Config) { c.Neo4j.ConnectionTimeout = 0 },
			want:   "neo4j.connection_timeout must be greater than 0",
		},
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.LLM.Type = "bedrock" },
			want:   "llm.provider must be one of",
		},
		{
			name: "otlp tracing without endpoint",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Provider = "otlp"
			},
			want: "tracing: endpoint is required",
		},
		{
			name:   "metrics path without slash",
			mutate: func(c *Config) { c.Metrics.Path = "metrics" },
			want:   `metrics.path must start with '/'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := NewValidator().Validate(cfg)
			require.Error(t, err)
			assert.Equal(t, types.CONFIG_VALIDATION_FAILED, types.CodeOf(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidation_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Neo4j.URI = ""
	cfg.RAG.AnswerMaxTokens = 0
	cfg.MCP.Transport = TransportStdio

	err := NewValidator().Validate(cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "neo4j.uri is required")
	assert.Contains(t, msg, "rag.answer_max_tokens must be at least 1")
	assert.Contains(t, msg, "mcp.command is required")
}

func TestWrite_RoundTrip(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.RAG.AspectTable = "/srv/aspects.yaml"
	require.NoError(t, Write(path, cfg, false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "schema_ttl: 10m0s")

	loaded, err := newLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestWrite_RefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\n")

	err := Write(path, DefaultConfig(), false)
	require.Error(t, err)
	assert.Equal(t, types.CONFIG_WRITE_FAILED, types.CodeOf(err))

	require.NoError(t, Write(path, DefaultConfig(), true))
}

func TestLoadDotEnv(t *testing.T) {
	const name = "ROADRAG_TEST_DOTENV_VALUE"
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(name+"=from-dotenv\n"), 0o600))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "from-dotenv", os.Getenv(name))
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	const name = "ROADRAG_TEST_DOTENV_KEEP"
	t.Setenv(name, "original")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(name+"=replaced\n"), 0o600))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "original", os.Getenv(name))
}

func TestDefaultHomeDir(t *testing.T) {
	t.Setenv("ROADRAG_HOME", "")
	assert.Contains(t, DefaultHomeDir(), ".roadrag")

	t.Setenv("ROADRAG_HOME", "/opt/roadrag")
	assert.Equal(t, "/opt/roadrag", DefaultHomeDir())
	assert.Equal(t, "/opt/roadrag/config.yaml", DefaultConfigPath(DefaultHomeDir()))
}

func TestInterpolateString(t *testing.T) {
	t.Setenv("TEST_ROADRAG_A", "alpha")
	t.Setenv("TEST_ROADRAG_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"${TEST_ROADRAG_A}", "alpha"},
		{"pre-${TEST_ROADRAG_A}-post", "pre-alpha-post"},
		{"${TEST_ROADRAG_A}/${TEST_ROADRAG_A}", "alpha/alpha"},
		{"${TEST_ROADRAG_EMPTY}", "${TEST_ROADRAG_EMPTY}"},
		{"$TEST_ROADRAG_A", "$TEST_ROADRAG_A"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, interpolateString(tt.in), tt.in)
	}
}

func TestInterpolateEnvVars(t *testing.T) {
	t.Setenv("TEST_ROADRAG_B", "beta")

	in := map[string]any{
		"str":    "${TEST_ROADRAG_B}",
		"num":    3,
		"list":   []any{"x-${TEST_ROADRAG_B}", true},
		"nested": map[string]any{"k": "${TEST_ROADRAG_B}"},
	}

	out, ok := interpolateEnvVars(in).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "beta", out["str"])
	assert.Equal(t, 3, out["num"])
	assert.Equal(t, []any{"x-beta", true}, out["list"])
	assert.Equal(t, map[string]any{"k": "beta"}, out["nested"])
}

func TestFormatFieldPath(t *testing.T) {
	assert.Equal(t, "neo4j.uri", formatFieldPath("Config.neo4j.uri"))
	assert.Equal(t, "neo4j.max_connection_pool_size", formatFieldPath("Config.Neo4j.MaxConnectionPoolSize"))
	assert.Equal(t, "Config", formatFieldPath("Config"))
}

func TestCamelToSnake(t *testing.T) {
	assert.Equal(t, "query_max_tokens", camelToSnake("QueryMaxTokens"))
	assert.Equal(t, "already_snake", camelToSnake("already_snake"))
	assert.Equal(t, "uri", camelToSnake("uri"))
}
