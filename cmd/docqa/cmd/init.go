package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa/configs"
	"github.com/docqa/docqa/internal/config"
	"github.com/docqa/docqa/internal/output"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .docqa.yaml configuration file",
		Long: `Write an annotated .docqa.yaml template to the current directory
and create the docs directory if it is missing.

Edit the file to point docqa at your documentation corpus, then run
'docqa index' to build the knowledge base.`,
		Example: `  # Initialize in the current directory
  docqa init

  # Overwrite an existing configuration
  docqa init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	configPath := ".docqa.yaml"
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	if err := os.WriteFile(configPath, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	out.Successf("Wrote %s", configPath)

	docsDir := config.DefaultDocsDirectory
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create docs directory: %w", err)
	}
	out.Successf("Created %s", filepath.Clean(docsDir))

	out.Newline()
	out.Status("", "Add documents to "+docsDir+" and run 'docqa index' to build the knowledge base.")
	return nil
}
