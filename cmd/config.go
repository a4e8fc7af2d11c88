package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Quidge/streamtck/internal/config"
	"github.com/Quidge/streamtck/internal/state"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or create configuration",
	Long: `View or create the streamtck configuration.

Subcommands:
  show   Print the effective configuration
  path   Print the configuration file locations
  init   Create the global configuration file`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration that "streamtck run" would use: the global
config merged with the project config found from the current directory.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file locations",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the global configuration file",
	Long: `Create the global configuration file from a commented template.

Use --project to create .streamtck.yaml in the current directory instead
(same as "streamtck init").`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("project", false, "create .streamtck.yaml in the current directory")
	configInitCmd.Flags().Bool("force", false, "overwrite existing file")
}

// effectiveConfig is the YAML view of config.MergedConfig.
type effectiveConfig struct {
	Implementation string          `yaml:"implementation"`
	Type           string          `yaml:"type"`
	MaxSubscribers int64           `yaml:"max_subscribers,omitempty"`
	Parallelism    int             `yaml:"parallelism"`
	Timeout        config.Duration `yaml:"timeout"`
	LogLevel       string          `yaml:"log_level"`
	HistoryDB      string          `yaml:"history_db"`
	Checks         config.Patterns `yaml:"checks,omitempty"`
	Tags           config.Patterns `yaml:"tags,omitempty"`
	Report         config.Report   `yaml:"report,omitempty"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	merged, err := config.Load(configPath, config.FlagOverrides{LogLevel: levelOverride()})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	historyDB := merged.HistoryDB
	if historyDB == "" {
		if historyDB, err = state.DefaultDBPath(); err != nil {
			return err
		}
	}

	view := effectiveConfig{
		Implementation: merged.Implementation,
		Type:           merged.ImplType,
		MaxSubscribers: merged.MaxSubscribers,
		Parallelism:    merged.Parallelism,
		Timeout:        config.Duration(merged.Timeout),
		LogLevel:       merged.LogLevel,
		HistoryDB:      historyDB,
		Checks:         merged.Checks,
		Tags:           merged.Tags,
		Report:         merged.Report,
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	global := configPath
	if global == "" {
		var err error
		if global, err = config.GlobalConfigPath(); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "global:  %s%s\n", global, missingSuffix(global))

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	if project := config.FindProjectConfig(cwd); project != "" {
		fmt.Fprintf(out, "project: %s\n", project)
	} else {
		fmt.Fprintf(out, "project: (none, searched from %s)\n", cwd)
	}
	return nil
}

func missingSuffix(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (not found, using defaults)"
	}
	return ""
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	project, _ := cmd.Flags().GetBool("project")
	if project {
		return runInit(cmd, args)
	}
	force, _ := cmd.Flags().GetBool("force")

	path := configPath
	if path == "" {
		var err error
		if path, err = config.GlobalConfigPath(); err != nil {
			return err
		}
	}

	if err := config.WriteTemplate(path, config.GlobalConfigTemplate, force); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	return nil
}
