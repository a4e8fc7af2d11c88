package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Quidge/streamtck/cmd/history"
	"github.com/Quidge/streamtck/internal/logging"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	configPath string
	logLevel   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "streamtck",
	Short: "Verify publisher implementations against the reactive streams rules",
	Long: `streamtck runs a conformance suite against a publisher implementation
and reports, for every check, whether it passed, failed, was skipped,
was inconclusive or is informational only.

Checks carry tags that decide whether they run at all (optional
capabilities, subscriber capacity) and how their outcome is judged
(required, stochastic, not mechanically verifiable). Runs are recorded
in a local history database so that flaky stochastic checks can be
spotted over time.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "global config file (default: ~/.config/streamtck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error, off")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output (same as --log-level debug)")

	rootCmd.AddCommand(history.Cmd)
}

// levelOverride returns the log level requested on the command line, or ""
// to keep the configured one.
func levelOverride() string {
	if logLevel != "" {
		return logLevel
	}
	if verbose {
		return "debug"
	}
	return ""
}

// newLogger builds the command logger, writing to the command's stderr.
func newLogger(cmd *cobra.Command, level string) zerolog.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = level
	if out := cmd.ErrOrStderr(); out != os.Stderr {
		cfg.Output = out
		cfg.Pretty = false
	}
	return logging.NewWithComponent(cfg, cmd.Name())
}
