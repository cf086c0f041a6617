package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"gocompare/internal/errors"
)

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. Every statement
// is idempotent and valid for both postgres and sqlite.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createAnalysisRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analysis_runs table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createAnalysisRunsTable(ctx context.Context, db *sqlx.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id VARCHAR(36) PRIMARY KEY,
		group_column TEXT NOT NULL,
		metrics TEXT NOT NULL,
		replicate INTEGER NOT NULL DEFAULT 1,
		allow_list TEXT NOT NULL DEFAULT '[]',
		input_hash VARCHAR(64) NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		result TEXT NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	return nil
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_analysis_runs_input_hash ON analysis_runs(input_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs(created_at DESC)`,
	}

	for _, query := range indexes {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, err)
		}
	}
	return nil
}
