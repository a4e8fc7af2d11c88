package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Quidge/streamtck/internal/config"
	"github.com/Quidge/streamtck/internal/gitutil"
	"github.com/Quidge/streamtck/internal/impl"
	_ "github.com/Quidge/streamtck/internal/impl/reference" // Register reference and unicast
	"github.com/Quidge/streamtck/internal/logging"
	"github.com/Quidge/streamtck/internal/report"
	"github.com/Quidge/streamtck/internal/runner"
	"github.com/Quidge/streamtck/internal/state"
	"github.com/Quidge/streamtck/internal/verification"
)

// ErrNotConformant is returned by run when at least one check failed.
var ErrNotConformant = errors.New("implementation is not conformant")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the publisher suite against an implementation",
	Long: `Run the publisher verification suite against an implementation.

The implementation is taken from --impl, the project config or the global
default_implementation, in that order. Checks can be narrowed down by ID
glob (--include, --exclude) and by tag kind (--with-tags, --without-tags);
these add to the selection in .streamtck.yaml.

The run is recorded in the history database unless --no-history is given.
The command exits non-zero when any check failed. Skipped, inconclusive
and informational results never fail a run.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("impl", "", "implementation to verify (default from config)")
	runCmd.Flags().Int("parallelism", 0, "checks run concurrently (default from config)")
	runCmd.Flags().Duration("timeout", 0, "timeout for a single check (default from config)")
	runCmd.Flags().StringP("output", "o", "table", "output format: table, json or junit")
	runCmd.Flags().String("report-format", "", "format of the report file (default junit)")
	runCmd.Flags().String("report-file", "", "also write the report to this file")
	runCmd.Flags().String("history-db", "", "history database path (default from config)")
	runCmd.Flags().Bool("no-history", false, "do not record the run")
	addSelectionFlags(runCmd)
}

// addSelectionFlags registers the check selection flags shared by run and
// list.
func addSelectionFlags(c *cobra.Command) {
	c.Flags().StringSlice("include", nil, "only run checks whose ID matches one of these globs")
	c.Flags().StringSlice("exclude", nil, "skip checks whose ID matches one of these globs")
	c.Flags().StringSlice("with-tags", nil, "only run checks carrying one of these tag kinds")
	c.Flags().StringSlice("without-tags", nil, "skip checks carrying any of these tag kinds")
}

// selectionOverrides reads the selection flags into overrides.
func selectionOverrides(c *cobra.Command, overrides *config.FlagOverrides) {
	overrides.Include, _ = c.Flags().GetStringSlice("include")
	overrides.Exclude, _ = c.Flags().GetStringSlice("exclude")
	overrides.WithTags, _ = c.Flags().GetStringSlice("with-tags")
	overrides.WithoutTags, _ = c.Flags().GetStringSlice("without-tags")
}

func runRun(cmd *cobra.Command, _ []string) error {
	overrides := config.FlagOverrides{LogLevel: levelOverride()}
	overrides.Implementation, _ = cmd.Flags().GetString("impl")
	overrides.Parallelism, _ = cmd.Flags().GetInt("parallelism")
	overrides.Timeout, _ = cmd.Flags().GetDuration("timeout")
	overrides.HistoryDB, _ = cmd.Flags().GetString("history-db")
	overrides.ReportFormat, _ = cmd.Flags().GetString("report-format")
	overrides.ReportFile, _ = cmd.Flags().GetString("report-file")
	selectionOverrides(cmd, &overrides)
	output, _ := cmd.Flags().GetString("output")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	format, err := report.ParseFormat(output)
	if err != nil {
		return err
	}

	merged, err := config.Load(configPath, overrides)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := logging.ParseLevel(merged.LogLevel); err != nil {
		return err
	}
	logger := newLogger(cmd, merged.LogLevel)

	sel, err := merged.Selector()
	if err != nil {
		return err
	}
	suite := verification.PublisherSuite().Filter(sel)
	if len(suite.Checks) == 0 {
		return fmt.Errorf("no checks match the selection")
	}

	im, err := impl.Get(impl.Config{
		Name:           merged.Implementation,
		Type:           merged.ImplType,
		MaxSubscribers: merged.MaxSubscribers,
	})
	if err != nil {
		return fmt.Errorf("failed to create implementation %s: %w", merged.Implementation, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	r := &runner.Runner{
		Impl:        im,
		RunID:       state.GenerateID(),
		Parallelism: merged.Parallelism,
		Timeout:     merged.Timeout,
		Logger:      logger,
	}
	rep, err := r.Run(ctx, suite)
	if err != nil {
		return err
	}

	if !noHistory {
		if err := recordRun(merged, rep, logger); err != nil {
			logger.Warn().Err(err).Msg("failed to record run history")
		}
	}

	doc := report.FromRunner(rep)
	if err := report.Write(cmd.OutOrStdout(), format, doc); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if merged.Report.File != "" {
		if err := report.WriteFile(merged.Report.File, report.Format(merged.Report.Format), doc); err != nil {
			return err
		}
		logger.Info().Str("file", merged.Report.File).Str("format", merged.Report.Format).Msg("report written")
	}

	logger.Info().
		Str("run_id", rep.RunID).
		Str("counts", report.StatusCounts(rep.Counts)).
		Bool("conformant", rep.Conformant()).
		Msg("run complete")

	if !rep.Conformant() {
		return fmt.Errorf("%w: %d of %d checks failed", ErrNotConformant, rep.Counts.Failed, rep.Counts.Total)
	}
	return nil
}

// recordRun stores rep in the history database together with the git
// context of the working directory.
func recordRun(merged config.MergedConfig, rep *runner.Report, logger zerolog.Logger) error {
	db, err := state.Open(merged.HistoryDB)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer logging.DeferClose(logger, db, "failed to close history database")

	run := &state.Run{
		ID:             rep.RunID,
		Suite:          rep.Suite,
		Implementation: rep.Implementation,
		ImplType:       merged.ImplType,
		StartedAt:      rep.StartedAt,
		Duration:       rep.Duration.Round(time.Millisecond),
		Counts:         rep.Counts,
	}
	if info, err := gitutil.Describe(""); err == nil {
		run.RepoPath = info.Root
		run.Branch = info.Branch
	}

	if err := db.SaveRun(run, report.HistoryResults(rep)); err != nil {
		return err
	}
	logger.Debug().Str("run_id", rep.RunID).Str("db", db.Path()).Msg("run recorded")
	return nil
}
