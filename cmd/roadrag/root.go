package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kg-road/roadrag/internal/config"
	"github.com/kg-road/roadrag/internal/observability"
)

// appConfig is the configuration loaded before any command runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "roadrag",
	Short: "roadrag - question answering over a road traffic knowledge graph",
	Long: `roadrag answers natural-language questions about incidents, response
plans and variable message signs by querying a Neo4j road graph one aspect
at a time and asking a language model to synthesize the findings.

Run 'roadrag chat' for the interactive loop or 'roadrag ask' for a single
question.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// skipsConfig lists commands that must work without a valid config.
func skipsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "init", "completion":
		return true
	}
	return false
}

// loadConfig is called before any command runs to load configuration
func loadConfig(cmd *cobra.Command, args []string) error {
	if skipsConfig(cmd) {
		return nil
	}

	if err := config.LoadDotEnv(globalFlags.EnvFiles...); err != nil {
		return err
	}

	loader := config.NewConfigLoader(config.NewValidator())
	path, explicit := globalFlags.configPath()

	var (
		cfg *config.Config
		err error
	)
	if explicit {
		cfg, err = loader.Load(path)
	} else {
		cfg, err = loader.LoadWithDefaults(path)
	}
	if err != nil {
		return err
	}

	if globalFlags.Verbose {
		cfg.Logging.Level = "debug"
	}
	slog.SetDefault(observability.NewLogger(cfg.Logging, os.Stderr))
	slog.Debug("configuration loaded", "path", path, "provider", cfg.LLM.Type, "transport", cfg.MCP.Transport)

	appConfig = cfg
	return nil
}

func init() {
	RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(serveMCPCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
