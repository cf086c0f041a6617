package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gocompare/domain/core"
	"gocompare/ports"
)

// runRow is the storage shape of an AnalysisRun. List columns are JSON text so
// the same schema works on postgres and sqlite.
type runRow struct {
	ID          string    `db:"id"`
	GroupColumn string    `db:"group_column"`
	Metrics     string    `db:"metrics"`
	Replicate   int       `db:"replicate"`
	AllowList   string    `db:"allow_list"`
	InputHash   string    `db:"input_hash"`
	RowCount    int       `db:"row_count"`
	Result      string    `db:"result"`
	DurationMS  int64     `db:"duration_ms"`
	CreatedAt   time.Time `db:"created_at"`
}

const runColumns = `id, group_column, metrics, replicate, allow_list, input_hash, row_count, result, duration_ms, created_at`

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// Save inserts a run
func (r *runRepository) Save(ctx context.Context, run *ports.AnalysisRun) error {
	row, err := toRow(run)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`INSERT INTO analysis_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.db.ExecContext(ctx, query,
		row.ID, row.GroupColumn, row.Metrics, row.Replicate, row.AllowList,
		row.InputHash, row.RowCount, row.Result, row.DurationMS, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID
func (r *runRepository) GetByID(ctx context.Context, id core.RunID) (*ports.AnalysisRun, error) {
	query := r.db.Rebind(`SELECT ` + runColumns + ` FROM analysis_runs WHERE id = ?`)

	var row runRow
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return fromRow(row)
}

// List returns runs newest first
func (r *runRepository) List(ctx context.Context, limit, offset int) ([]*ports.AnalysisRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := r.db.Rebind(`SELECT ` + runColumns + ` FROM analysis_runs
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return fromRows(rows)
}

// FindByInputHash returns runs over identical input, newest first
func (r *runRepository) FindByInputHash(ctx context.Context, hash core.Hash) ([]*ports.AnalysisRun, error) {
	query := r.db.Rebind(`SELECT ` + runColumns + ` FROM analysis_runs
		WHERE input_hash = ? ORDER BY created_at DESC, id DESC`)

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, hash.String()); err != nil {
		return nil, fmt.Errorf("failed to find runs by input hash: %w", err)
	}
	return fromRows(rows)
}

func toRow(run *ports.AnalysisRun) (runRow, error) {
	metrics, err := json.Marshal(nonNil(run.Metrics))
	if err != nil {
		return runRow{}, fmt.Errorf("failed to marshal metrics: %w", err)
	}
	allow, err := json.Marshal(nonNil(run.AllowList))
	if err != nil {
		return runRow{}, fmt.Errorf("failed to marshal allow list: %w", err)
	}

	created := run.CreatedAt
	if created.IsZero() {
		created = core.Now()
	}

	return runRow{
		ID:          run.ID.String(),
		GroupColumn: run.GroupColumn,
		Metrics:     string(metrics),
		Replicate:   run.Replicate,
		AllowList:   string(allow),
		InputHash:   run.InputHash.String(),
		RowCount:    run.RowCount,
		Result:      run.Result,
		DurationMS:  run.DurationMS,
		CreatedAt:   core.Stamp(created),
	}, nil
}

func fromRow(row runRow) (*ports.AnalysisRun, error) {
	run := &ports.AnalysisRun{
		ID:          core.RunID(row.ID),
		GroupColumn: row.GroupColumn,
		Replicate:   row.Replicate,
		InputHash:   core.Hash(row.InputHash),
		RowCount:    row.RowCount,
		Result:      row.Result,
		DurationMS:  row.DurationMS,
		CreatedAt:   row.CreatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(row.Metrics), &run.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal([]byte(row.AllowList), &run.AllowList); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allow list: %w", err)
	}
	return run, nil
}

func fromRows(rows []runRow) ([]*ports.AnalysisRun, error) {
	runs := make([]*ports.AnalysisRun, 0, len(rows))
	for _, row := range rows {
		run, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
