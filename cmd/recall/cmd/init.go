package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/contextlab/recall/configs"
	"github.com/contextlab/recall/internal/config"
)

// initOptions holds CLI flags for init.
type initOptions struct {
	user  bool
	force bool
}

func newInitCmd() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Write a commented configuration template.

By default this creates .recall.yaml in the current directory. With
--user it creates the machine-level config at ~/.config/recall/config.yaml
instead.`,
		Example: `  # Create .recall.yaml in the current project
  recall init

  # Create the user-level config
  recall init --user

  # Overwrite an existing file
  recall init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.user, "user", false, "Write the user-level config instead of a project config")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing configuration file")

	return cmd
}

func runInit(cmd *cobra.Command, opts initOptions) error {
	path := ".recall.yaml"
	template := configs.ProjectConfigTemplate
	if opts.user {
		path = config.GetUserConfigPath()
		template = configs.UserConfigTemplate
	}

	if _, err := os.Stat(path); err == nil && !opts.force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
