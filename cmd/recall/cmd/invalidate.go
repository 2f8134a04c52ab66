package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contextlab/recall/internal/output"
)

// invalidateOptions holds CLI flags for invalidate.
type invalidateOptions struct {
	entity string
	chunk  string
	all    bool
	json   bool
}

func newInvalidateCmd() *cobra.Command {
	var opts invalidateOptions

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Invalidate cached query results",
		Long: `Remove cached query results after the underlying memory changed.

Examples:
  recall invalidate --entity Lilou
  recall invalidate --chunk 7f3a9c12
  recall invalidate --all`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targets := 0
			if opts.entity != "" {
				targets++
			}
			if opts.chunk != "" {
				targets++
			}
			if opts.all {
				targets++
			}
			if targets != 1 {
				return fmt.Errorf("specify exactly one of --entity, --chunk, or --all")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, store, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			defer eng.Close()

			w := output.NewWriter(cmd.OutOrStdout(), opts.json)
			switch {
			case opts.all:
				if err := eng.InvalidateAll(); err != nil {
					return err
				}
				return w.Invalidated("all scopes", -1)
			case opts.entity != "":
				removed, err := eng.InvalidateByEntity(opts.entity)
				if err != nil {
					return err
				}
				return w.Invalidated("entity "+opts.entity, removed)
			default:
				removed, err := eng.InvalidateByChunk(opts.chunk)
				if err != nil {
					return err
				}
				return w.Invalidated("chunk "+opts.chunk, removed)
			}
		},
	}

	cmd.Flags().StringVar(&opts.entity, "entity", "", "Invalidate entries mentioning this entity")
	cmd.Flags().StringVar(&opts.chunk, "chunk", "", "Invalidate entries built from this chunk ID")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Invalidate the entire cache")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output result as JSON")

	return cmd
}
