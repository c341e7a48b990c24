package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

func seriesPoints(unit, group string, comp model.Component, startYear int, values ...float64) []model.SeriesPoint {
	pts := make([]model.SeriesPoint, len(values))
	for i, v := range values {
		pts[i] = model.SeriesPoint{
			Unit:       unit,
			Group:      group,
			Component:  comp,
			Year:       startYear + i,
			Value:      v,
			Provenance: model.ProvenanceObserved,
		}
	}
	return pts
}

func testMembership(t *testing.T, unitGroup map[string]string) *model.Membership {
	t.Helper()
	return model.NewMembership(unitGroup)
}

func TestNew_BuildsRectangle(t *testing.T) {
	t.Parallel()

	members := testMembership(t, map[string]string{
		"E01000001": "E06000001",
		"E01000002": "E06000001",
	})
	pts := append(
		seriesPoints("E01000001", "E06000001", model.ComponentCompensation, 2016, 10, 11, 12),
		seriesPoints("E01000002", "E06000001", model.ComponentCompensation, 2016, 20, 21, 22)...,
	)

	st, err := New(pts, members)
	require.NoError(t, err)

	assert.Equal(t, 2, st.Len())
	lo, hi := st.YearRange()
	assert.Equal(t, 2016, lo)
	assert.Equal(t, 2018, hi)

	s, ok := st.Series("E01000001", model.ComponentCompensation)
	require.True(t, ok)
	p, ok := s.At(2017)
	require.True(t, ok)
	assert.Equal(t, 11.0, p.Value)
	assert.Equal(t, "E06000001", p.Group)
}

func TestNew_RejectsDuplicatePoint(t *testing.T) {
	t.Parallel()

	members := testMembership(t, map[string]string{"E01000001": "E06000001"})
	pts := seriesPoints("E01000001", "E06000001", model.ComponentCompensation, 2016, 10, 11)
	pts = append(pts, pts[0])

	_, err := New(pts, members)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNew_RejectsRaggedSeries(t *testing.T) {
	t.Parallel()

	members := testMembership(t, map[string]string{
		"E01000001": "E06000001",
		"E01000002": "E06000001",
	})
	pts := append(
		seriesPoints("E01000001", "E06000001", model.ComponentCompensation, 2016, 10, 11, 12),
		seriesPoints("E01000002", "E06000001", model.ComponentCompensation, 2016, 20, 21)...,
	)

	_, err := New(pts, members)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "covers")
}

func TestNew_RejectsUnknownUnit(t *testing.T) {
	t.Parallel()

	members := testMembership(t, map[string]string{"E01000001": "E06000001"})
	pts := seriesPoints("E01000009", "E06000001", model.ComponentCompensation, 2016, 1)

	_, err := New(pts, members)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in membership")
}

func TestNew_RejectsGroupMismatch(t *testing.T) {
	t.Parallel()

	members := testMembership(t, map[string]string{"E01000001": "E06000001"})
	pts := seriesPoints("E01000001", "E06000009", model.ComponentCompensation, 2016, 1)

	_, err := New(pts, members)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match membership")
}

func TestStore_DeterministicOrderAndGroups(t *testing.T) {
	t.Parallel()

	members := testMembership(t, map[string]string{
		"E01000002": "E06000001",
		"E01000001": "E06000001",
		"E01000003": "E06000002",
	})
	var pts []model.SeriesPoint
	pts = append(pts, seriesPoints("E01000003", "E06000002", model.ComponentSocialBenefits, 2016, 3)...)
	pts = append(pts, seriesPoints("E01000002", "E06000001", model.ComponentCompensation, 2016, 2)...)
	pts = append(pts, seriesPoints("E01000001", "E06000001", model.ComponentCompensation, 2016, 1)...)

	st, err := New(pts, members)
	require.NoError(t, err)

	all := st.All()
	require.Len(t, all, 3)
	assert.Equal(t, "E01000001", all[0].Unit)
	assert.Equal(t, "E01000002", all[1].Unit)
	assert.Equal(t, model.ComponentSocialBenefits, all[2].Component)

	assert.Equal(t, []model.Component{model.ComponentCompensation, model.ComponentSocialBenefits}, st.Components())
	assert.Equal(t, []string{"E06000001"}, st.GroupsFor(model.ComponentCompensation))

	group := st.GroupSeries("E06000001", model.ComponentCompensation)
	require.Len(t, group, 2)
	assert.Equal(t, "E01000001", group[0].Unit)
}

func TestSeries_AnchorWalking(t *testing.T) {
	t.Parallel()

	members := testMembership(t, map[string]string{"E01000001": "E06000001"})
	pts := seriesPoints("E01000001", "E06000001", model.ComponentCompensation, 2010, 10, 20, 30, 40, 50)
	st, err := New(pts, members)
	require.NoError(t, err)

	s, _ := st.Series("E01000001", model.ComponentCompensation)

	// Flag 2011 and 2012: the walk from 2012 must pass 2011 and land on 2010.
	for _, year := range []int{2011, 2012} {
		p, _ := s.At(year)
		p.Flagged = true
	}

	prev, ok := s.AnchorBefore(2012, false)
	require.True(t, ok)
	assert.Equal(t, 2010, prev.Year)

	next, ok := s.AnchorAfter(2011, false)
	require.True(t, ok)
	assert.Equal(t, 2013, next.Year)

	_, ok = s.AnchorBefore(2010, false)
	assert.False(t, ok)

	assert.Equal(t, []int{2011, 2012}, s.FlaggedYears())
	assert.Equal(t, 3, s.UnflaggedCount())
}

func TestSeries_ChainedAnchorPolicy(t *testing.T) {
	t.Parallel()

	members := testMembership(t, map[string]string{"E01000001": "E06000001"})
	pts := seriesPoints("E01000001", "E06000001", model.ComponentCompensation, 2010, 10, 20, 30, 40)
	st, err := New(pts, members)
	require.NoError(t, err)

	s, _ := st.Series("E01000001", model.ComponentCompensation)

	p2011, _ := s.At(2011)
	p2011.Flagged = true
	p2011.Advance(21, model.ProvenanceInterpolated)

	p2012, _ := s.At(2012)
	p2012.Flagged = true

	// Default policy walks past the imputed 2011 to the observed 2010.
	prev, ok := s.AnchorBefore(2012, false)
	require.True(t, ok)
	assert.Equal(t, 2010, prev.Year)

	// Chained policy lets the imputed 2011 anchor.
	prev, ok = s.AnchorBefore(2012, true)
	require.True(t, ok)
	assert.Equal(t, 2011, prev.Year)

	assert.Len(t, s.Anchors(false), 2)
	assert.Len(t, s.Anchors(true), 3)
}
