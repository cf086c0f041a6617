package ports

import (
	"context"
	"time"

	"gocompare/domain/core"
)

// AnalysisRun is a stored analysis invocation.
type AnalysisRun struct {
	ID          core.RunID `json:"id" db:"id"`
	GroupColumn string     `json:"group_column" db:"group_column"`
	Metrics     []string   `json:"metrics" db:"-"`
	Replicate   int        `json:"replicate" db:"replicate"`
	AllowList   []string   `json:"allow_list,omitempty" db:"-"`
	InputHash   core.Hash  `json:"input_hash" db:"input_hash"`
	RowCount    int        `json:"row_count" db:"row_count"`
	Result      string     `json:"result" db:"result"`
	DurationMS  int64      `json:"duration_ms" db:"duration_ms"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// RunRepository persists analysis runs.
type RunRepository interface {
	Save(ctx context.Context, run *AnalysisRun) error
	GetByID(ctx context.Context, id core.RunID) (*AnalysisRun, error)
	List(ctx context.Context, limit, offset int) ([]*AnalysisRun, error)
	FindByInputHash(ctx context.Context, hash core.Hash) ([]*AnalysisRun, error)
}
