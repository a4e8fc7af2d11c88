package history

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Quidge/streamtck/internal/gitutil"
	"github.com/Quidge/streamtck/internal/report"
	"github.com/Quidge/streamtck/internal/state"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recorded runs",
	Long: `List recorded runs, newest first, optionally filtered by implementation
or repository.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listImplFlag  string
	listRepoFlag  bool
	listLimitFlag int
)

func init() {
	listCmd.Flags().StringVar(&listImplFlag, "impl", "", "filter by implementation")
	listCmd.Flags().BoolVar(&listRepoFlag, "repo", false, "filter by current repository")
	listCmd.Flags().IntVarP(&listLimitFlag, "limit", "n", 20, "show at most this many runs (0 = all)")
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := state.ListOptions{
		Implementation: listImplFlag,
		Limit:          listLimitFlag,
	}

	// Filter by current repository if requested
	if listRepoFlag {
		repoRoot, err := gitutil.RepoRoot("")
		if err != nil {
			return fmt.Errorf("not in a git repository: %w", err)
		}
		opts.RepoPath = repoRoot
	}

	runs, err := db.ListRuns(opts)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	if err := report.WriteRuns(out, runs, time.Now()); err != nil {
		return err
	}

	if opts.Limit > 0 && len(runs) == opts.Limit {
		total, err := db.CountRuns(opts)
		if err == nil && total > len(runs) {
			fmt.Fprintf(out, "\n%d of %d runs shown (use --limit 0 to see all)\n", len(runs), total)
		}
	}
	return nil
}
