package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocompare/domain/core"
	"gocompare/internal/config"
	"gocompare/ports"
)

func newTestRepository(t *testing.T) ports.RunRepository {
	t.Helper()
	db, err := Connect(context.Background(), config.DatabaseConfig{URL: "sqlite://:memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunRepository(db)
}

func TestRunRepository_SaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	run := &ports.AnalysisRun{
		ID:          core.NewRunID(),
		GroupColumn: "condition",
		Metrics:     []string{"value", "weight"},
		Replicate:   2,
		AllowList:   []string{"A", "B"},
		InputHash:   core.InputHash("condition,value\nA,1\n", "condition", []string{"value"}, 2, []string{"A", "B"}),
		RowCount:    6,
		Result:      `{"value": {"error": "No data after cleaning"}}`,
		DurationMS:  12,
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Metrics, got.Metrics)
	assert.Equal(t, run.AllowList, got.AllowList)
	assert.Equal(t, run.InputHash, got.InputHash)
	assert.Equal(t, run.Result, got.Result)
	assert.Equal(t, 2, got.Replicate)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
}

func TestRunRepository_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByID(context.Background(), core.NewRunID())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestRunRepository_ListAndFind(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	hash := core.NewHash([]byte("same input"))

	var ids []core.RunID
	for i := 0; i < 3; i++ {
		run := &ports.AnalysisRun{
			ID:          core.NewRunID(),
			GroupColumn: "g",
			Metrics:     []string{"v"},
			Replicate:   1,
			InputHash:   hash,
			Result:      "{}",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if i == 1 {
			run.InputHash = core.NewHash([]byte("other"))
		}
		require.NoError(t, repo.Save(ctx, run))
		ids = append(ids, run.ID)
	}

	runs, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID, "newest first")
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Empty(t, runs[0].AllowList)

	runs, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ids[0], runs[0].ID)

	matches, err := repo.FindByInputHash(ctx, hash)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, ids[2], matches[0].ID)
	assert.Equal(t, ids[0], matches[1].ID)
}
