package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/Quidge/streamtck/internal/outcome"
	"github.com/Quidge/streamtck/internal/tag"
)

// ListOptions specifies filters for listing runs.
type ListOptions struct {
	Implementation string // Filter by implementation name
	RepoPath       string // Filter by repository path (exact match)
	Limit          int    // Maximum number of runs, newest first (0 = no limit)
}

func (opts ListOptions) where() (string, []any) {
	var conditions []string
	var args []any

	if opts.Implementation != "" {
		conditions = append(conditions, "implementation = ?")
		args = append(args, opts.Implementation)
	}

	if opts.RepoPath != "" {
		conditions = append(conditions, "repo_path = ?")
		args = append(args, opts.RepoPath)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListRuns returns runs matching the given filters, newest first.
func (db *DB) ListRuns(opts ListOptions) ([]*Run, error) {
	where, args := opts.where()
	query := `SELECT ` + runColumns + ` FROM runs` + where + ` ORDER BY started_at DESC, rowid DESC`
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	return db.queryRuns(query, args...)
}

// CountRuns returns the number of runs matching the given filters.
// Limit is ignored.
func (db *DB) CountRuns(opts ListOptions) (int, error) {
	where, args := opts.where()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM runs"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// StreakOptions selects the window examined by StochasticStreaks.
type StreakOptions struct {
	Implementation  string // Only runs of this implementation (empty = all)
	LastRuns        int    // Only the most recent N runs (0 = all)
	MinInconclusive int    // Minimum INCONCLUSIVE count to report (values < 1 mean 1)
}

// Streak summarises how often a stochastic check came out INCONCLUSIVE.
type Streak struct {
	Implementation string
	CheckID        string
	Inconclusive   int       // INCONCLUSIVE results in the window
	Executed       int       // Runs in the window where the check executed
	LastSeen       time.Time // Start of the newest run in the window
}

// StochasticStreaks reports stochastic checks with repeated INCONCLUSIVE
// results, most frequent first. Escalating them is left to the operator.
func (db *DB) StochasticStreaks(opts StreakOptions) ([]Streak, error) {
	minCount := max(opts.MinInconclusive, 1)
	limit := opts.LastRuns
	if limit <= 0 {
		limit = -1
	}

	window := "SELECT id, implementation, started_at FROM runs"
	var args []any
	if opts.Implementation != "" {
		window += " WHERE implementation = ?"
		args = append(args, opts.Implementation)
	}
	window += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	query := `
		SELECT r.implementation, res.check_id,
		       SUM(CASE WHEN res.status = ? THEN 1 ELSE 0 END) AS inconclusive,
		       COUNT(*) AS executed,
		       MAX(r.started_at)
		FROM results res
		JOIN (` + window + `) r ON r.id = res.run_id
		WHERE (',' || res.tags || ',') LIKE ? AND res.status != ?
		GROUP BY r.implementation, res.check_id
		HAVING inconclusive >= ?
		ORDER BY inconclusive DESC, r.implementation, res.check_id`
	args = append([]any{string(outcome.StatusInconclusive)}, args...)
	args = append(args, "%,"+string(tag.KindStochastic)+",%", string(outcome.StatusSkipped), minCount)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stochastic streaks: %w", err)
	}
	defer rows.Close()

	var streaks []Streak
	for rows.Next() {
		var s Streak
		var lastSeen string
		if err := rows.Scan(&s.Implementation, &s.CheckID, &s.Inconclusive, &s.Executed, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan streak: %w", err)
		}
		s.LastSeen, err = time.Parse(time.RFC3339, lastSeen)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		streaks = append(streaks, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating streaks: %w", err)
	}
	return streaks, nil
}
