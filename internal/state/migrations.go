package state

import (
	"fmt"
)

// migration represents a database schema migration.
type migration struct {
	version int
	name    string
	up      string
}

// migrations contains all database migrations in order.
// Add new migrations to the end of this slice.
var migrations = []migration{
	{
		version: 1,
		name:    "create_runs_table",
		up: `
CREATE TABLE runs (
    id             TEXT PRIMARY KEY,
    suite          TEXT NOT NULL,
    implementation TEXT NOT NULL,
    impl_type      TEXT NOT NULL,
    repo_path      TEXT,
    branch         TEXT,
    started_at     TEXT NOT NULL,
    duration_ms    INTEGER NOT NULL,
    total          INTEGER NOT NULL,
    passed         INTEGER NOT NULL,
    failed         INTEGER NOT NULL,
    skipped        INTEGER NOT NULL,
    inconclusive   INTEGER NOT NULL,
    informational  INTEGER NOT NULL,
    required_passed INTEGER NOT NULL,
    required_failed INTEGER NOT NULL
);

CREATE INDEX idx_runs_implementation ON runs(implementation);
CREATE INDEX idx_runs_repo ON runs(repo_path);
CREATE INDEX idx_runs_started ON runs(started_at);
`,
	},
	{
		version: 2,
		name:    "create_results_table",
		up: `
CREATE TABLE results (
    run_id      TEXT NOT NULL REFERENCES runs(id),
    seq         INTEGER NOT NULL,
    check_id    TEXT NOT NULL,
    rule        TEXT,
    tags        TEXT NOT NULL,
    status      TEXT NOT NULL,
    reason      TEXT,
    duration_ms INTEGER NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX idx_results_check ON results(check_id, status);
`,
	},
}

// migrate runs all pending migrations.
func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion, err := db.schemaVersion()
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		if err := db.runMigration(m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.version, m.name, err)
		}
	}

	return nil
}

// schemaVersion returns the current schema version, or 0 if no migrations have been applied.
func (db *DB) schemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// runMigration runs a single migration within a transaction.
func (db *DB) runMigration(m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.up); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	_, err = tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.version, m.name,
	)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	return db.schemaVersion()
}
