package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kg-road/roadrag/internal/types"
	"github.com/kg-road/roadrag/internal/util"
)

// EnvPrefix prefixes environment overrides: neo4j.uri is ROADRAG_NEO4J_URI.
const EnvPrefix = "ROADRAG"

// legacyEnv maps keys to the unprefixed variables the Neo4j tooling reads,
// so an existing .env keeps working.
var legacyEnv = map[string][]string{
	"llm.api_key":    {"ROADRAG_LLM_API_KEY"},
	"neo4j.uri":      {"ROADRAG_NEO4J_URI", "NEO4J_URI"},
	"neo4j.username": {"ROADRAG_NEO4J_USERNAME", "NEO4J_USERNAME"},
	"neo4j.password": {"ROADRAG_NEO4J_PASSWORD", "NEO4J_PASSWORD"},
	"neo4j.database": {"ROADRAG_NEO4J_DATABASE", "NEO4J_DATABASE"},
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ConfigLoader handles loading configuration from files.
type ConfigLoader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperConfigLoader implements ConfigLoader using Viper.
type viperConfigLoader struct {
	validator ConfigValidator
}

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader(validator ConfigValidator) ConfigLoader {
	return &viperConfigLoader{
		validator: validator,
	}
}

// Load reads the YAML file at path on top of DefaultConfig. ${VAR}
// references in string values are expanded and ROADRAG_* variables
// override file values. Returns an error if the file doesn't exist.
func (l *viperConfigLoader) Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.WrapError(types.CONFIG_NOT_FOUND, "config file not found: "+path, err)
		}
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to stat config file", err)
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err)
	}

	return l.build(file.AllSettings())
}

// LoadWithDefaults loads configuration from the specified file path.
// If path is empty or the file doesn't exist, the defaults plus any
// environment overrides are returned.
func (l *viperConfigLoader) LoadWithDefaults(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return l.Load(path)
		}
	}
	return l.build(nil)
}

func (l *viperConfigLoader) build(fileSettings map[string]any) (*Config, error) {
	v, err := newViper(DefaultConfig())
	if err != nil {
		return nil, err
	}

	if fileSettings != nil {
		interpolated, _ := interpolateEnvVars(fileSettings).(map[string]any)
		if err := v.MergeConfigMap(interpolated); err != nil {
			return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to merge config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to unmarshal config", err)
	}
	if err := util.ExpandPaths(&cfg.RAG.AspectTable, &cfg.RAG.PromptDir); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to expand rag paths", err)
	}

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newViper seeds a viper instance with defaults so every key is known to
// AutomaticEnv.
func newViper(defaults *Config) (*viper.Viper, error) {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to encode defaults", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to read defaults", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range legacyEnv {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to bind "+key, err)
		}
	}
	return v, nil
}

// interpolateEnvVars recursively interpolates environment variables in the config map.
// Supports ${VAR_NAME} syntax.
func interpolateEnvVars(data any) any {
	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			result[key] = interpolateEnvVars(value)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, value := range v {
			result[i] = interpolateEnvVars(value)
		}
		return result
	case string:
		return interpolateString(v)
	default:
		return v
	}
}

// interpolateString replaces ${VAR_NAME} with environment variable values.
// Unset variables are left as written.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
		return match
	})
}
