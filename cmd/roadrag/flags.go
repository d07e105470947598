package main

import (
	"github.com/spf13/cobra"

	"github.com/kg-road/roadrag/internal/config"
	"github.com/kg-road/roadrag/internal/util"
)

// GlobalFlags holds global flags available to all commands
type GlobalFlags struct {
	Verbose    bool
	ConfigFile string
	HomeDir    string
	EnvFiles   []string
}

var globalFlags = &GlobalFlags{}

// RegisterGlobalFlags registers persistent flags on the root command
func RegisterGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&globalFlags.ConfigFile, "config", "", "Path to config file (default: $ROADRAG_HOME/config.yaml)")
	cmd.PersistentFlags().StringVar(&globalFlags.HomeDir, "home", "", "roadrag home directory (default: ~/.roadrag)")
	cmd.PersistentFlags().StringSliceVar(&globalFlags.EnvFiles, "env-file", nil, "Env files to load before reading config (default: ./.env)")
}

// configPath resolves the config file from --config, --home and the default.
// explicit reports whether the user named the file.
func (f *GlobalFlags) configPath() (path string, explicit bool) {
	if f.ConfigFile != "" {
		return expand(f.ConfigFile), true
	}
	home := expand(f.HomeDir)
	if home == "" {
		home = config.DefaultHomeDir()
	}
	return config.DefaultConfigPath(home), false
}

// expand resolves ~ and $VAR in a flag value, keeping it as given when the
// home directory is unknown.
func expand(path string) string {
	if expanded, err := util.ExpandPath(path); err == nil {
		return expanded
	}
	return path
}
