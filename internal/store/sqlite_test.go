package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleReport(runID string) *model.RunReport {
	return &model.RunReport{
		RunID:     runID,
		YearStart: 2010,
		YearEnd:   2015,
		Counts: model.StageCounts{
			Series:        120,
			FlaggedPoints: 14,
			Interpolated:  9,
			Extrapolated:  5,
			Apportioned:   310,
			Floored:       2,
			Rollbacks:     1,
		},
		Failures: []model.Failure{
			{Kind: model.KindInsufficientData, Unit: "E01000001", Component: model.ComponentPropertyIncome, Message: "no anchor"},
		},
		Residuals: []model.RollbackResidual{
			{Unit: "E01000002", Component: model.ComponentOperatingSurplus, Year: 2014, Amount: 1.25},
		},
		Succeeded: false,
	}
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateRun(ctx, 2010, 2015)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, model.RunStatusRunning, created.Status)

	got, err := st.GetRun(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Equal(t, 2010, got.YearStart)
	assert.Equal(t, 2015, got.YearEnd)
	assert.Empty(t, got.Error)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_CompleteRunStoresReport(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateRun(ctx, 2010, 2015)
	require.NoError(t, err)

	report := sampleReport(created.ID)
	require.NoError(t, st.CompleteRun(ctx, created.ID, report))

	got, err := st.GetRun(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)

	stored, err := st.GetReport(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.RunID)
	assert.Equal(t, report.Counts, stored.Counts)
	require.Len(t, stored.Failures, 1)
	assert.Equal(t, model.KindInsufficientData, stored.Failures[0].Kind)
	require.Len(t, stored.Residuals, 1)
	assert.InDelta(t, 1.25, stored.Residuals[0].Amount, 1e-9)
	assert.False(t, stored.Succeeded)
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.CompleteRun(context.Background(), "nonexistent-run", sampleReport("nonexistent-run"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateRun(ctx, 2010, 2015)
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, created.ID, "observed table is ragged"))

	got, err := st.GetRun(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "observed table is ragged", got.Error)
}

func TestSQLite_GetReport_NoReport(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateRun(ctx, 2010, 2015)
	require.NoError(t, err)

	_, err = st.GetReport(ctx, created.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no report")
}

func TestSQLite_ListRuns_OrderAndFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.CreateRun(ctx, 2010, 2012)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := st.CreateRun(ctx, 2010, 2013)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	third, err := st.CreateRun(ctx, 2010, 2014)
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, second.ID, "bad input"))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first
	assert.Equal(t, third.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
	assert.Equal(t, first.ID, all[2].ID)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, second.ID, failed[0].ID)
}

func TestSQLite_ListRuns_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := st.CreateRun(ctx, 2010, 2015)
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
