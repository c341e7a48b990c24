// Package apportion reconciles group slices against their control totals:
// it distributes the discrepancy across member units, resolves implausible
// negatives by flooring and redistribution, and cascades corrections into
// prior years when the rollback policy calls for it.
package apportion

import (
	"math"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// DefaultTolerance is the relative tolerance for conservation checks.
const DefaultTolerance = 1e-6

// Conserved reports whether sum matches total within relative tolerance.
func Conserved(sum, total, rtol float64) bool {
	return math.Abs(sum-total) <= rtol*math.Max(1, math.Abs(total))
}

// Sum returns the current value sum of the points.
func Sum(points []*model.SeriesPoint) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum
}

// Distribute spreads the difference between the control total and the
// candidate sum across the points, proportional to each point's share of the
// sum. A zero candidate sum falls back to equal shares. A slice already
// matching its total exactly is left untouched.
func Distribute(points []*model.SeriesPoint, total float64) {
	if len(points) == 0 {
		return
	}
	sum := Sum(points)
	delta := total - sum
	if delta == 0 {
		return
	}
	if sum == 0 {
		each := total / float64(len(points))
		for _, p := range points {
			p.Advance(each, model.ProvenanceApportioned)
		}
		return
	}
	for _, p := range points {
		share := p.Value / sum
		p.Advance(p.Value+delta*share, model.ProvenanceApportioned)
	}
}
