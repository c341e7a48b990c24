package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ONSdigital/gdhi-adj/internal/model"
	"github.com/ONSdigital/gdhi-adj/internal/timeseries"
)

func testStore(t *testing.T) *timeseries.Store {
	t.Helper()
	pts := []model.SeriesPoint{
		{Unit: "E01000001", Group: "E06000001", Component: "D1", Year: 2019, Value: 10.125, Provenance: model.ProvenanceObserved},
		{Unit: "E01000001", Group: "E06000001", Component: "D1", Year: 2020, Value: 20.5, Provenance: model.ProvenanceApportioned},
		{Unit: "E01000002", Group: "E06000001", Component: "D1", Year: 2019, Value: 5, Provenance: model.ProvenanceObserved},
		{Unit: "E01000002", Group: "E06000001", Component: "D1", Year: 2020, Value: 6, Provenance: model.ProvenanceFloored},
	}
	members, err := model.MembershipFromPoints(pts)
	require.NoError(t, err)
	st, err := timeseries.New(pts, members)
	require.NoError(t, err)
	return st
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteReconciled(t *testing.T) {
	st := testStore(t)
	path := filepath.Join(t.TempDir(), "adjusted.csv")

	require.NoError(t, WriteReconciled(path, st, nil, 2))

	rows := readCSV(t, path)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"unit", "group", "component", "year", "value", "provenance"}, rows[0])
	// 10.125 rounded to 2 decimal places.
	assert.Equal(t, []string{"E01000001", "E06000001", "D1", "2019", "10.13", "observed"}, rows[1])
	assert.Equal(t, "floored", rows[4][5])
}

func TestWriteReconciledExcludesFailedSeries(t *testing.T) {
	st := testStore(t)
	path := filepath.Join(t.TempDir(), "adjusted.csv")

	failures := []model.Failure{
		{Kind: model.KindInsufficientData, Unit: "E01000002", Component: "D1", Message: "no anchors"},
	}
	require.NoError(t, WriteReconciled(path, st, failures, 2))

	rows := readCSV(t, path)
	require.Len(t, rows, 3) // header + the two E01000001 points
	for _, row := range rows[1:] {
		assert.Equal(t, "E01000001", row[0])
	}
}

func TestWriteReconciledExcludesFailedSlice(t *testing.T) {
	st := testStore(t)
	path := filepath.Join(t.TempDir(), "adjusted.csv")

	failures := []model.Failure{
		{Kind: model.KindUnresolvable, Group: "E06000001", Component: "D1", Year: 2020, Message: "all floored"},
	}
	require.NoError(t, WriteReconciled(path, st, failures, 2))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	for _, row := range rows[1:] {
		assert.Equal(t, "2019", row[3])
	}
}

func TestWriteReconciledExcludesFailedGroup(t *testing.T) {
	st := testStore(t)
	path := filepath.Join(t.TempDir(), "adjusted.csv")

	// A group-level failure without a year drops every slice of the group.
	failures := []model.Failure{
		{Kind: model.KindPreflight, Group: "E06000001", Component: "D1", Message: "all units flagged"},
	}
	require.NoError(t, WriteReconciled(path, st, failures, 2))

	rows := readCSV(t, path)
	require.Len(t, rows, 1)
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	report := &model.RunReport{
		RunID:     "run-1",
		YearStart: 2019,
		YearEnd:   2020,
		Counts:    model.StageCounts{Series: 2, Apportioned: 2},
		Succeeded: true,
	}

	require.NoError(t, WriteReport(path, report))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got model.RunReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 2, got.Counts.Apportioned)
	assert.True(t, got.Succeeded)
}

func TestSummary(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	report := &model.RunReport{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		YearStart:  2010,
		YearEnd:    2020,
		Counts:     model.StageCounts{Series: 1200, FlaggedPoints: 34, Interpolated: 30, Extrapolated: 4, Apportioned: 13000, Floored: 2, Rollbacks: 1},
		Succeeded:  true,
	}

	out := Summary(report)
	assert.Contains(t, out, "Run run-1 succeeded in 1.5s (years 2010-2020)")
	assert.Contains(t, out, "1,200")  // grouped series count
	assert.Contains(t, out, "13,000") // grouped apportioned count
	assert.Contains(t, out, "1 rollbacks")
}

func TestSummaryFailures(t *testing.T) {
	report := &model.RunReport{
		Failures: []model.Failure{
			{Kind: model.KindIncompleteGroup, Group: "E06000001", Component: "D1", Year: 2015, Message: "group E06000001 component D1 year 2015: missing candidates"},
		},
		Residuals: []model.RollbackResidual{
			{Unit: "E01000001", Component: "D1", Year: 2015, Amount: 1.25},
		},
	}

	out := Summary(report)
	assert.Contains(t, out, "(unsaved)")
	assert.Contains(t, out, "completed with 1 failures")
	assert.Contains(t, out, "failure [incomplete_group]")
	assert.Contains(t, out, "residual E01000001 D1 year 2015: 1.250 unabsorbed")
}
