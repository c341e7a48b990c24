package apportion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

func slicePoints(values ...float64) []*model.SeriesPoint {
	units := []string{"E01000001", "E01000002", "E01000003", "E01000004", "E01000005"}
	pts := make([]*model.SeriesPoint, len(values))
	for i, v := range values {
		pts[i] = &model.SeriesPoint{
			Unit:       units[i],
			Group:      "E06000001",
			Component:  model.ComponentSocialBenefits,
			Year:       2018,
			Value:      v,
			Provenance: model.ProvenanceObserved,
		}
	}
	return pts
}

func values(pts []*model.SeriesPoint) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}

func TestDistribute_Proportional(t *testing.T) {
	t.Parallel()

	// delta = 36 - 40 = -4, shares 0.25 and 0.75: 10 - 1 = 9, 30 - 3 = 27.
	pts := slicePoints(10, 30)
	Distribute(pts, 36)

	assert.InDelta(t, 9.0, pts[0].Value, 1e-12)
	assert.InDelta(t, 27.0, pts[1].Value, 1e-12)
	assert.InDelta(t, 36.0, Sum(pts), 1e-9)
	for _, p := range pts {
		assert.Equal(t, model.ProvenanceApportioned, p.Provenance)
	}
}

func TestDistribute_EqualSharesOnZeroSum(t *testing.T) {
	t.Parallel()

	pts := slicePoints(0, 0)
	Distribute(pts, 10)

	assert.InDelta(t, 5.0, pts[0].Value, 1e-12)
	assert.InDelta(t, 5.0, pts[1].Value, 1e-12)
}

func TestDistribute_ConsistentSliceUntouched(t *testing.T) {
	t.Parallel()

	pts := slicePoints(3, 7)
	Distribute(pts, 10)

	assert.Equal(t, []float64{3, 7}, values(pts))
	for _, p := range pts {
		assert.Equal(t, model.ProvenanceObserved, p.Provenance)
	}
}

func TestDistribute_NegativeCandidateCarriesNegativeShare(t *testing.T) {
	t.Parallel()

	// sum = 10, delta = 4; the negative candidate moves further negative
	// (share -0.2), leaving resolution to the flooring stage.
	pts := slicePoints(-2, 8, 4)
	Distribute(pts, 14)

	assert.InDelta(t, -2.8, pts[0].Value, 1e-12)
	assert.InDelta(t, 11.2, pts[1].Value, 1e-12)
	assert.InDelta(t, 5.6, pts[2].Value, 1e-12)
	assert.InDelta(t, 14.0, Sum(pts), 1e-9)
}

func TestConserved(t *testing.T) {
	t.Parallel()

	assert.True(t, Conserved(100.0000001, 100, DefaultTolerance))
	assert.False(t, Conserved(100.001, 100, DefaultTolerance))

	// Small totals are judged on an absolute scale.
	assert.True(t, Conserved(1e-9, 0, DefaultTolerance))
	assert.False(t, Conserved(0.1, 0, DefaultTolerance))
}
