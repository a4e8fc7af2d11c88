package state

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Quidge/streamtck/internal/outcome"
	"github.com/Quidge/streamtck/internal/tag"
)

// Run is a recorded suite run.
type Run struct {
	ID             string        // 32 hex chars
	Suite          string        // Suite name (e.g., "publisher")
	Implementation string        // Configured implementation name
	ImplType       string        // Registered implementation type
	RepoPath       string        // Git repository the run was started from (may be empty)
	Branch         string        // Branch checked out at the time (may be empty)
	StartedAt      time.Time     // When the run started
	Duration       time.Duration // Wall-clock duration of the run
	Counts         outcome.Counts
}

// Conformant reports whether the run had no FAIL results.
func (r *Run) Conformant() bool {
	return r.Counts.Conformant()
}

// Result is the recorded outcome of one check within a run.
type Result struct {
	CheckID  string
	Rule     string
	Tags     []tag.Kind
	Status   outcome.Status
	Reason   string
	Duration time.Duration
}

// ErrRunNotFound is returned when a run with the given ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousPrefix is returned when an ID prefix matches multiple runs.
var ErrAmbiguousPrefix = errors.New("ambiguous run ID prefix")

// AmbiguousPrefixError is returned when an ID prefix matches multiple runs.
// It includes the matching runs for better error messages.
type AmbiguousPrefixError struct {
	Prefix  string
	Matches []*Run
}

func (e *AmbiguousPrefixError) Error() string {
	return fmt.Sprintf("%s: '%s' matches %d runs", ErrAmbiguousPrefix.Error(), e.Prefix, len(e.Matches))
}

func (e *AmbiguousPrefixError) Unwrap() error {
	return ErrAmbiguousPrefix
}

// ErrInvalidPrefix is returned when an ID prefix contains non-hex characters.
var ErrInvalidPrefix = errors.New("invalid ID prefix: must contain only hexadecimal characters")

// ErrInvalidStatus is returned when a result carries an unknown status.
var ErrInvalidStatus = errors.New("invalid status")

const runColumns = `id, suite, implementation, impl_type, repo_path, branch, started_at, duration_ms,
	total, passed, failed, skipped, inconclusive, informational, required_passed, required_failed`

// SaveRun stores a run and its results in one transaction.
func (db *DB) SaveRun(run *Run, results []Result) error {
	for _, r := range results {
		if !r.Status.IsValid() {
			return fmt.Errorf("%w: %s (check %s)", ErrInvalidStatus, r.Status, r.CheckID)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	c := run.Counts
	_, err = tx.Exec(`INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Suite,
		run.Implementation,
		run.ImplType,
		nullString(run.RepoPath),
		nullString(run.Branch),
		run.StartedAt.UTC().Format(time.RFC3339),
		run.Duration.Milliseconds(),
		c.Total, c.Passed, c.Failed, c.Skipped, c.Inconclusive, c.Informational,
		c.RequiredPassed, c.RequiredFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for i, r := range results {
		_, err := tx.Exec(`
			INSERT INTO results (run_id, seq, check_id, rule, tags, status, reason, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			i,
			r.CheckID,
			nullString(r.Rule),
			joinKinds(r.Tags),
			string(r.Status),
			nullString(r.Reason),
			r.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to save result for %s: %w", r.CheckID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by full ID.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetRunByPrefix retrieves a run by ID prefix.
// Returns ErrRunNotFound if no match, ErrAmbiguousPrefix if multiple matches,
// or ErrInvalidPrefix if the prefix contains non-hex characters.
func (db *DB) GetRunByPrefix(prefix string) (*Run, error) {
	if prefix == "" || !isHexString(prefix) {
		return nil, ErrInvalidPrefix
	}

	runs, err := db.queryRuns(`SELECT `+runColumns+` FROM runs WHERE id LIKE ? || '%'`,
		strings.ToLower(prefix))
	if err != nil {
		return nil, err
	}

	switch len(runs) {
	case 0:
		return nil, ErrRunNotFound
	case 1:
		return runs[0], nil
	default:
		return nil, &AmbiguousPrefixError{Prefix: prefix, Matches: runs}
	}
}

// DeleteRun removes a run and its results.
func (db *DB) DeleteRun(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM results WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete results: %w", err)
	}
	result, err := tx.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return tx.Commit()
}

// ResultsForRun returns the results of a run in suite order.
func (db *DB) ResultsForRun(runID string) ([]Result, error) {
	rows, err := db.Query(`
		SELECT check_id, rule, tags, status, reason, duration_ms
		FROM results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var rule, reason sql.NullString
		var tags string
		var durationMS int64
		if err := rows.Scan(&r.CheckID, &rule, &tags, &r.Status, &reason, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Rule = rule.String
		r.Reason = reason.String
		r.Tags = splitKinds(tags)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

// queryRuns runs a query selecting runColumns and scans every row.
func (db *DB) queryRuns(query string, args ...any) ([]*Run, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// scanner is an interface for sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a row of runColumns into a Run.
func scanRun(s scanner) (*Run, error) {
	var run Run
	var repoPath, branch sql.NullString
	var startedAt string
	var durationMS int64
	c := &run.Counts

	err := s.Scan(
		&run.ID,
		&run.Suite,
		&run.Implementation,
		&run.ImplType,
		&repoPath,
		&branch,
		&startedAt,
		&durationMS,
		&c.Total, &c.Passed, &c.Failed, &c.Skipped, &c.Inconclusive, &c.Informational,
		&c.RequiredPassed, &c.RequiredFailed,
	)
	if err != nil {
		return nil, err
	}

	run.RepoPath = repoPath.String
	run.Branch = branch.String
	run.Duration = time.Duration(durationMS) * time.Millisecond

	run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}

	return &run, nil
}

// nullString converts an empty string to sql.NullString for optional fields.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func joinKinds(kinds []tag.Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

func splitKinds(s string) []tag.Kind {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	kinds := make([]tag.Kind, len(parts))
	for i, p := range parts {
		kinds[i] = tag.Kind(p)
	}
	return kinds
}
