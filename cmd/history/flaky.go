package history

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Quidge/streamtck/internal/report"
	"github.com/Quidge/streamtck/internal/state"
)

var flakyCmd = &cobra.Command{
	Use:   "flaky",
	Short: "List stochastic checks that keep coming out inconclusive",
	Long: `List stochastic checks with repeated INCONCLUSIVE results in recent runs.

An inconclusive stochastic check never fails a run on its own. One that is
inconclusive run after run probably hides a real defect and is worth
investigating.`,
	Args: cobra.NoArgs,
	RunE: runFlaky,
}

var (
	flakyImplFlag string
	flakyLastFlag int
	flakyMinFlag  int
)

func init() {
	flakyCmd.Flags().StringVar(&flakyImplFlag, "impl", "", "only consider runs of this implementation")
	flakyCmd.Flags().IntVar(&flakyLastFlag, "last", 10, "only consider the most recent N runs (0 = all)")
	flakyCmd.Flags().IntVar(&flakyMinFlag, "min", 2, "minimum number of inconclusive results to report")
}

func runFlaky(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	streaks, err := db.StochasticStreaks(state.StreakOptions{
		Implementation:  flakyImplFlag,
		LastRuns:        flakyLastFlag,
		MinInconclusive: flakyMinFlag,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(streaks) == 0 {
		fmt.Fprintln(out, "No flaky stochastic checks found.")
		return nil
	}
	return report.WriteStreaks(out, streaks, time.Now())
}
