package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ONSdigital/gdhi-adj/internal/config"
	"github.com/ONSdigital/gdhi-adj/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// testConfig builds a config over temp input files: two units in one LAD,
// one component, three years. The 2020 control total exceeds the candidate
// sum by 20, so that year is apportioned 10:30.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	observed := filepath.Join(dir, "observed.csv")
	writeFile(t, observed,
		"unit,group,component,2018,2019,2020\n"+
			"E01000001,E06000001,D1,10,10,10\n"+
			"E01000002,E06000001,D1,30,30,30\n")

	controls := filepath.Join(dir, "controls.csv")
	writeFile(t, controls,
		"group,component,year,value\n"+
			"E06000001,D1,2018,40\n"+
			"E06000001,D1,2019,40\n"+
			"E06000001,D1,2020,60\n")

	return &config.Config{
		Input: config.InputConfig{
			Observed: observed,
			Controls: controls,
		},
		Output: config.OutputConfig{
			Reconciled: filepath.Join(dir, "adjusted.csv"),
			Report:     filepath.Join(dir, "report.json"),
		},
		Adjustment: config.AdjustmentConfig{
			RollbackYears: 2,
			Tolerance:     1e-6,
			MinGroupSize:  2,
			Precision:     2,
			Workers:       2,
		},
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(dir, "runs.db"),
		},
		Log: config.LogConfig{Level: "error", Format: "json"},
	}
}

func TestAdjustEndToEnd(t *testing.T) {
	cfg = testConfig(t)
	adjustCmd.SetContext(context.Background())

	require.NoError(t, adjustCmd.RunE(adjustCmd, nil))

	f, err := os.Open(cfg.Output.Reconciled)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 7) // header + 2 units x 3 years

	// Sum per year must match the control totals. 2018 and 2019 already
	// match, so only the 2020 points carry apportioned provenance.
	sums := make(map[string]float64)
	for _, row := range rows[1:] {
		v, err := strconv.ParseFloat(row[4], 64)
		require.NoError(t, err)
		sums[row[3]] += v
		if row[3] == "2020" {
			assert.Equal(t, string(model.ProvenanceApportioned), row[5])
		} else {
			assert.Equal(t, string(model.ProvenanceObserved), row[5])
		}
	}
	assert.InDelta(t, 40, sums["2018"], 1e-6)
	assert.InDelta(t, 40, sums["2019"], 1e-6)
	assert.InDelta(t, 60, sums["2020"], 1e-6)

	// The 2020 surplus of 20 splits 10:30 by candidate share.
	values := make(map[string]string)
	for _, row := range rows[1:] {
		values[row[0]+"/"+row[3]] = row[4]
	}
	assert.Equal(t, "15.00", values["E01000001/2020"])
	assert.Equal(t, "45.00", values["E01000002/2020"])

	// Report written and marked succeeded.
	data, err := os.ReadFile(cfg.Output.Report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"succeeded": true`)

	// Run persisted.
	_, err = os.Stat(cfg.Store.DatabaseURL)
	assert.NoError(t, err)
}

func TestAdjustMissingControls(t *testing.T) {
	cfg = testConfig(t)
	adjustCmd.SetContext(context.Background())
	writeFile(t, cfg.Input.Controls,
		"group,component,year,value\n"+
			"E99999999,D1,2018,40\n")

	err := adjustCmd.RunE(adjustCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no control totals")
}

func TestValidateEndToEnd(t *testing.T) {
	cfg = testConfig(t)
	require.NoError(t, validateCmd.RunE(validateCmd, nil))
}

func TestPrepareEndToEnd(t *testing.T) {
	cfg = testConfig(t)
	dir := t.TempDir()

	sub := filepath.Join(dir, "d1.csv")
	writeFile(t, sub,
		"unit,group,component,2018,2019\n"+
			"E01000001,E06000001,D1,10,11\n"+
			"E01000002,E06000001,D1,30,31\n")

	prepareOut = filepath.Join(dir, "prepared.csv")
	prepareMapper = ""
	require.NoError(t, prepareCmd.RunE(prepareCmd, []string{sub}))

	data, err := os.ReadFile(prepareOut)
	require.NoError(t, err)
	assert.Contains(t, string(data), "E01000001")
}
