package flagging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ONSdigital/gdhi-adj/internal/model"
	"github.com/ONSdigital/gdhi-adj/internal/timeseries"
)

func buildStore(t *testing.T, unitGroup map[string]string, series map[string][]float64, comp model.Component, startYear int) *timeseries.Store {
	t.Helper()
	var pts []model.SeriesPoint
	for unit, values := range series {
		for i, v := range values {
			pts = append(pts, model.SeriesPoint{
				Unit:       unit,
				Group:      unitGroup[unit],
				Component:  comp,
				Year:       startYear + i,
				Value:      v,
				Provenance: model.ProvenanceObserved,
			})
		}
	}
	st, err := timeseries.New(pts, model.NewMembership(unitGroup))
	require.NoError(t, err)
	return st
}

func TestCompile_ValidatesOverrides(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ov      Override
		wantErr string
	}{
		{
			name:    "no years",
			ov:      Override{Unit: "E01000001", Component: model.ComponentCompensation},
			wantErr: "names no years",
		},
		{
			name:    "repeated year",
			ov:      Override{Unit: "E01000001", Component: model.ComponentCompensation, Years: []int{2011, 2011}},
			wantErr: "repeats year",
		},
		{
			name:    "year out of range",
			ov:      Override{Unit: "E01000001", Component: model.ComponentCompensation, Years: []int{2009}},
			wantErr: "outside",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Criteria{Overrides: []Override{tt.ov}}.Compile(2010, 2015)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlagSeries_Overrides(t *testing.T) {
	t.Parallel()

	st := buildStore(t,
		map[string]string{"E01000001": "E06000001"},
		map[string][]float64{"E01000001": {10, 20, 30, 40}},
		model.ComponentCompensation, 2010)

	cc, err := Criteria{Overrides: []Override{
		{Unit: "E01000001", Component: model.ComponentCompensation, Years: []int{2011, 2013}},
	}}.Compile(2010, 2013)
	require.NoError(t, err)

	s, _ := st.Series("E01000001", model.ComponentCompensation)
	flagged, err := FlagSeries(s, cc)
	require.NoError(t, err)
	assert.Equal(t, 2, flagged)
	assert.Equal(t, []int{2011, 2013}, s.FlaggedYears())

	// Values stay untouched.
	p, _ := s.At(2011)
	assert.Equal(t, 20.0, p.Value)
	assert.Equal(t, model.ProvenanceObserved, p.Provenance)
}

func TestFlagSeries_SpikeRule(t *testing.T) {
	t.Parallel()

	// 2012 jumps to 500 against neighbours 30 and 40: flagged.
	// 2014 rises to 60 against 40: a 50% rise does not exceed the threshold.
	st := buildStore(t,
		map[string]string{"E01000001": "E06000001"},
		map[string][]float64{"E01000001": {10, 20, 500, 40, 60}},
		model.ComponentCompensation, 2010)

	cc, err := Criteria{SpikeThreshold: 2.0}.Compile(2010, 2014)
	require.NoError(t, err)

	s, _ := st.Series("E01000001", model.ComponentCompensation)
	flagged, err := FlagSeries(s, cc)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
	assert.Equal(t, []int{2012}, s.FlaggedYears())
}

func TestFlagSeries_SpikeNeedsBothNeighbours(t *testing.T) {
	t.Parallel()

	// 2011 jumps against 2010 but sits close to 2012: a level shift, not a
	// spike, so it stays unflagged.
	st := buildStore(t,
		map[string]string{"E01000001": "E06000001"},
		map[string][]float64{"E01000001": {10, 100, 110, 105}},
		model.ComponentCompensation, 2010)

	cc, err := Criteria{SpikeThreshold: 2.0}.Compile(2010, 2013)
	require.NoError(t, err)

	s, _ := st.Series("E01000001", model.ComponentCompensation)
	flagged, err := FlagSeries(s, cc)
	require.NoError(t, err)
	assert.Zero(t, flagged)
}

func TestFlagSeries_SpikeBoundarySingleSided(t *testing.T) {
	t.Parallel()

	// The first year is judged against its single neighbour.
	st := buildStore(t,
		map[string]string{"E01000001": "E06000001"},
		map[string][]float64{"E01000001": {900, 10, 11, 12}},
		model.ComponentCompensation, 2010)

	cc, err := Criteria{SpikeThreshold: 2.0}.Compile(2010, 2013)
	require.NoError(t, err)

	s, _ := st.Series("E01000001", model.ComponentCompensation)
	flagged, err := FlagSeries(s, cc)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
	assert.Equal(t, []int{2010}, s.FlaggedYears())
}

func TestFlagSeries_SpikeOffZero(t *testing.T) {
	t.Parallel()

	st := buildStore(t,
		map[string]string{"E01000001": "E06000001"},
		map[string][]float64{"E01000001": {0, 5, 0}},
		model.ComponentCompensation, 2010)

	cc, err := Criteria{SpikeThreshold: 10}.Compile(2010, 2012)
	require.NoError(t, err)

	s, _ := st.Series("E01000001", model.ComponentCompensation)
	flagged, err := FlagSeries(s, cc)
	require.NoError(t, err)
	assert.Equal(t, []int{2011}, s.FlaggedYears())
	assert.Equal(t, 1, flagged)
}

func TestFlagSeries_ThresholdZeroDisablesRule(t *testing.T) {
	t.Parallel()

	st := buildStore(t,
		map[string]string{"E01000001": "E06000001"},
		map[string][]float64{"E01000001": {10, 9999, 10}},
		model.ComponentCompensation, 2010)

	cc, err := Criteria{}.Compile(2010, 2012)
	require.NoError(t, err)

	s, _ := st.Series("E01000001", model.ComponentCompensation)
	flagged, err := FlagSeries(s, cc)
	require.NoError(t, err)
	assert.Zero(t, flagged)
}

func TestFlagSeries_PerComponentThreshold(t *testing.T) {
	t.Parallel()

	st := buildStore(t,
		map[string]string{"E01000001": "E06000001"},
		map[string][]float64{"E01000001": {10, 25, 10}},
		model.ComponentCurrentTaxes, 2010)

	// The 150% jump passes the default threshold but trips the tighter
	// component override.
	cc, err := Criteria{
		SpikeThreshold:      2.0,
		ComponentThresholds: map[model.Component]float64{model.ComponentCurrentTaxes: 1.0},
	}.Compile(2010, 2012)
	require.NoError(t, err)

	s, _ := st.Series("E01000001", model.ComponentCurrentTaxes)
	flagged, err := FlagSeries(s, cc)
	require.NoError(t, err)
	assert.Equal(t, []int{2011}, s.FlaggedYears())
	assert.Equal(t, 1, flagged)
}

func TestFlagSeries_AllFlaggedFails(t *testing.T) {
	t.Parallel()

	st := buildStore(t,
		map[string]string{"E01000001": "E06000001"},
		map[string][]float64{"E01000001": {10, 20}},
		model.ComponentCompensation, 2010)

	cc, err := Criteria{Overrides: []Override{
		{Unit: "E01000001", Component: model.ComponentCompensation, Years: []int{2010, 2011}},
	}}.Compile(2010, 2011)
	require.NoError(t, err)

	s, _ := st.Series("E01000001", model.ComponentCompensation)
	_, err = FlagSeries(s, cc)
	var insufficient *model.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "E01000001", insufficient.Unit)
}
