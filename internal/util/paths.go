// Package util holds small helpers shared by the config layer and the CLI.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ to the user home directory, expands $VAR
// and ${VAR} references and cleans the result. An empty path stays empty.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory for %q: %w", path, err)
		}
		path = home + path[1:]
	}

	return filepath.Clean(os.ExpandEnv(path)), nil
}

// ExpandPaths expands every non-empty path in place and stops at the first
// failure.
func ExpandPaths(paths ...*string) error {
	for _, p := range paths {
		if p == nil || *p == "" {
			continue
		}
		expanded, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}
