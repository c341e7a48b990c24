package pipeline

import (
	"sort"

	"github.com/ONSdigital/gdhi-adj/internal/model"
	"github.com/ONSdigital/gdhi-adj/internal/timeseries"
)

// ScalingFactors derives the per-slice ratio between each control total and
// the matching unconstrained group sum. The factors are diagnostic output
// only; slices with a zero unconstrained sum or no control total are
// omitted.
func ScalingFactors(unconstrained *timeseries.Store, controls *model.ControlTotals) []model.ScalingFactor {
	yearMin, yearMax := unconstrained.YearRange()

	var factors []model.ScalingFactor
	for _, comp := range unconstrained.Components() {
		for _, group := range unconstrained.GroupsFor(comp) {
			series := unconstrained.GroupSeries(group, comp)
			for year := yearMin; year <= yearMax; year++ {
				total, ok := controls.Get(group, comp, year)
				if !ok {
					continue
				}
				var sum float64
				for _, s := range series {
					if p, found := s.At(year); found {
						sum += p.Value
					}
				}
				if sum == 0 {
					continue
				}
				factors = append(factors, model.ScalingFactor{
					Group:     group,
					Component: comp,
					Year:      year,
					Factor:    total / sum,
				})
			}
		}
	}

	sort.Slice(factors, func(i, j int) bool {
		a, b := factors[i], factors[j]
		if a.Component != b.Component {
			return a.Component < b.Component
		}
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Year < b.Year
	})
	return factors
}
