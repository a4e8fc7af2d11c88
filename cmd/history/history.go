// Package history provides the `streamtck history` command group for
// inspecting recorded runs.
package history

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Quidge/streamtck/internal/config"
	"github.com/Quidge/streamtck/internal/state"
)

// Cmd is the parent command for run history.
var Cmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
	Long: `Inspect runs recorded by "streamtck run".

Runs are identified by their ID; any unambiguous prefix of at least one
character works, as shown by "streamtck history list".`,
}

var historyDBFlag string

func init() {
	Cmd.PersistentFlags().StringVar(&historyDBFlag, "history-db", "", "history database path (default from config)")

	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(flakyCmd)
	Cmd.AddCommand(rmCmd)
}

// openDB opens the history database named by --history-db or by the global
// config selected with the root --config flag.
func openDB(cmd *cobra.Command) (*state.DB, error) {
	path := historyDBFlag
	if path == "" {
		configPath, _ := cmd.Flags().GetString("config")
		global, err := config.LoadGlobalConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		path = global.HistoryDB
	}

	path, err := config.ExpandPath("", path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand history_db: %w", err)
	}

	db, err := state.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}
