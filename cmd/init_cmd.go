package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Quidge/streamtck/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .streamtck.yaml template",
	Long: `Create a .streamtck.yaml template in the current directory.

The template includes commented examples for all configuration options.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "overwrite existing file")
}

func runInit(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	path := filepath.Join(cwd, config.ProjectConfigFilename)
	if err := config.WriteTemplate(path, config.ProjectConfigTemplate, force); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", config.ProjectConfigFilename)
		}
		return fmt.Errorf("failed to write %s: %w", config.ProjectConfigFilename, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", config.ProjectConfigFilename)
	return nil
}
