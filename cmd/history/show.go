package history

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Quidge/streamtck/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show the results of a recorded run",
	Long: `Show the per-check results of a recorded run in any report format.

The ID can be a prefix if it uniquely identifies a run.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var showOutputFlag string

func init() {
	showCmd.Flags().StringVarP(&showOutputFlag, "output", "o", "table", "output format: table, json or junit")
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(showOutputFlag)
	if err != nil {
		return err
	}

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := lookupRun(db, args[0])
	if err != nil {
		return err
	}

	results, err := db.ResultsForRun(run.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == report.FormatTable {
		fmt.Fprintf(out, "Run:        %s\n", run.ID)
		if run.RepoPath != "" {
			fmt.Fprintf(out, "Repository: %s\n", run.RepoPath)
		}
		if run.Branch != "" {
			fmt.Fprintf(out, "Branch:     %s\n", run.Branch)
		}
		fmt.Fprintf(out, "Started:    %s\n\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}

	return report.Write(out, format, report.FromHistory(run, results))
}
