package cmd

import (
	"github.com/spf13/cobra"

	"github.com/contextlab/recall/internal/memory"
	"github.com/contextlab/recall/internal/output"
	"github.com/contextlab/recall/internal/telemetry"
)

// statusOptions holds CLI flags for status.
type statusOptions struct {
	scope string
	json  bool
}

func newStatusCmd() *cobra.Command {
	var opts statusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show memory store contents for a scope",
		Long: `Report stored chunk and entity counts for a user scope.

Query metrics accumulate per server process; use the memory_status MCP
tool against a running server to see them.

Examples:
  recall status
  recall status --scope alice --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := memory.NewSQLiteStore(cfg.Storage.Path, cfg.Storage.CacheSizeMB)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context(), opts.scope)
			if err != nil {
				return err
			}
			snap := telemetry.NewCollector(0).Snapshot()
			return output.NewWriter(cmd.OutOrStdout(), opts.json).Status(&stats, snap)
		},
	}

	cmd.Flags().StringVarP(&opts.scope, "scope", "s", "default", "User scope to report on")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output status as JSON")

	return cmd
}
