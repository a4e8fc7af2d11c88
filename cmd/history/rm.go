package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Quidge/streamtck/internal/state"
)

var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a recorded run",
	Long: `Remove a recorded run and its results from the history database.

The ID can be a prefix if it uniquely identifies a run.
Confirmation is required unless -f is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

var rmForceFlag bool

func init() {
	rmCmd.Flags().BoolVarP(&rmForceFlag, "force", "f", false, "skip confirmation")
}

func runRm(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := lookupRun(db, args[0])
	if err != nil {
		return err
	}

	shortID := state.ShortID(run.ID)
	out := cmd.OutOrStdout()

	if !rmForceFlag {
		fmt.Fprintf(out, "Remove run %s of %s? [y/N] ", shortID, run.Implementation)
		reader := bufio.NewReader(cmd.InOrStdin())
		response, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read response: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if err := db.DeleteRun(run.ID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	fmt.Fprintf(out, "Removed %s\n", shortID)
	return nil
}
