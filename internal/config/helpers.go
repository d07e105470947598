package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kg-road/roadrag/internal/types"
	"github.com/kg-road/roadrag/internal/util"
)

// DefaultHomeDir returns the roadrag home directory: $ROADRAG_HOME if set,
// otherwise ~/.roadrag, falling back to the temp dir when the user home
// cannot be determined.
func DefaultHomeDir() string {
	if dir := os.Getenv("ROADRAG_HOME"); dir != "" {
		if expanded, err := util.ExpandPath(dir); err == nil {
			return expanded
		}
		return dir
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".roadrag")
	}
	return filepath.Join(userHome, ".roadrag")
}

// DefaultConfigPath returns the default config file path for a given home directory
func DefaultConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped and variables already set are not overwritten. With no
// paths, ./.env is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return types.WrapError(types.CONFIG_LOAD_FAILED, "failed to load env file "+p, err)
		}
	}
	return nil
}

// Write encodes cfg as YAML at path, creating parent directories. An
// existing file is only replaced when overwrite is set.
func Write(path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return types.NewError(types.CONFIG_WRITE_FAILED, "config file already exists: "+path)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return types.WrapError(types.CONFIG_WRITE_FAILED, "failed to encode config", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return types.WrapError(types.CONFIG_WRITE_FAILED, "failed to create config directory", err)
	}
	// The file can carry credentials.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return types.WrapError(types.CONFIG_WRITE_FAILED, "failed to write config file", err)
	}
	return nil
}
