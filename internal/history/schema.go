package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

// schema.sql is the version 1 layout. Later versions are reached by applying
// migrations in order, for fresh and existing databases alike.
//
//go:embed schema.sql
var baseSchema string

// migrations[i] moves a database from version i+1 to i+2.
var migrations = []string{
	// 2: record when a run's notification was delivered.
	`ALTER TABLE runs ADD COLUMN notified_at TEXT;
     CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`,
}

// latestVersion is the schema version this build writes.
func latestVersion() int {
	return len(migrations) + 1
}

// ErrSchemaMismatch reports a history database written by a newer build.
var ErrSchemaMismatch = errors.New("history schema is newer than this build")

// initSchema creates the base layout when the database is empty and applies
// pending migrations in one transaction.
func (s *Store) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	version, err := readVersion(ctx, tx)
	if err != nil {
		return err
	}
	if version > latestVersion() {
		return fmt.Errorf("%w: %s has version %d, this build knows up to %d",
			ErrSchemaMismatch, s.path, version, latestVersion())
	}
	if version == latestVersion() {
		return nil
	}
	if version == 0 {
		if _, err := tx.ExecContext(ctx, baseSchema); err != nil {
			return fmt.Errorf("create history schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (1)"); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		version = 1
	}
	for v := version; v < latestVersion(); v++ {
		if _, err := tx.ExecContext(ctx, migrations[v-1]); err != nil {
			return fmt.Errorf("migrate history schema to version %d: %w", v+1, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "UPDATE schema_version SET version = ?", latestVersion()); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history schema: %w", err)
	}
	return nil
}

// readVersion returns 0 for a database without a schema_version table.
func readVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var tables int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tables)
	if err != nil {
		return 0, fmt.Errorf("check schema_version table: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}
	var version int
	err = tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
