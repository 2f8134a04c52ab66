// Package cmd provides the CLI commands for recall.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/contextlab/recall/internal/config"
	"github.com/contextlab/recall/internal/engine"
	"github.com/contextlab/recall/internal/logging"
	"github.com/contextlab/recall/internal/memory"
	"github.com/contextlab/recall/pkg/version"
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the recall CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Personal context retrieval engine and MCP server",
		Long: `Recall retrieves personal context for AI assistants: it classifies
query intent, runs hybrid exact/entity/semantic search over stored
memory chunks, and assembles a token-budgeted context block.

Running 'recall' with no arguments starts the MCP server on stdio.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runServe(cmd.Context(), serveOptions{})
		},
	}

	cmd.SetVersionTemplate("recall version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.recall/logs/")

	cmd.PersistentPreRunE = startDebugLogging
	cmd.PersistentPostRunE = stopDebugLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newInvalidateCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startDebugLogging enables file logging when --debug is set.
func startDebugLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("Debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

// stopDebugLogging flushes and closes the debug log file.
func stopDebugLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig loads configuration from the current directory, falling
// back to defaults when no config file exists.
func loadConfig() (*config.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return config.Load(dir)
}

// openEngine builds a ready engine over the configured SQLite store.
// The caller must close both when done.
func openEngine(cfg *config.Config) (*engine.Engine, memory.Store, error) {
	store, err := memory.NewSQLiteStore(cfg.Storage.Path, cfg.Storage.CacheSizeMB)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(*cfg, store, engine.WithLogger(slog.Default()))
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return eng, store, nil
}
