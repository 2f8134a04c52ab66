package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/contextlab/recall/internal/output"
)

// queryOptions holds CLI flags for query.
type queryOptions struct {
	scope   string
	json    bool
	verbose bool
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <message>",
		Short: "Retrieve personal context for a message",
		Long: `Run one message through the full retrieval pipeline and print the
assembled context block.

Examples:
  recall query "What does my uncle do for a living?"
  recall query "Tell me about my cat" --scope alice --verbose
  recall query "Where did I hike last summer?" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
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

			result, err := eng.ProcessQuery(cmd.Context(), message, opts.scope)
			if err != nil {
				return err
			}
			return output.NewWriter(cmd.OutOrStdout(), opts.json).QueryResult(result, opts.verbose)
		},
	}

	cmd.Flags().StringVarP(&opts.scope, "scope", "s", "default", "User scope to query")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output result as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show intent, cache tier, and match counts")

	return cmd
}
