package apportion

import (
	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// Resolution summarizes negative handling for one slice.
type Resolution struct {
	// FlooredDeficit maps each floored unit to the amount floored away.
	FlooredDeficit map[string]float64
	Passes         int
}

// Floored reports whether any unit was floored.
func (r Resolution) Floored() bool {
	return len(r.FlooredDeficit) > 0
}

// TotalDeficit returns the summed deficit across floored units.
func (r Resolution) TotalDeficit() float64 {
	var d float64
	for _, v := range r.FlooredDeficit {
		d += v
	}
	return d
}

// ResolveNegatives floors negative values to zero and pushes the resulting
// deficit back onto the remaining positive units as a proportional
// reduction, repeating until no negatives remain. Each pass floors at least
// one further unit, so the loop runs at most once per unit. When every unit
// is floored while deficit remains, the slice cannot conserve its total and
// fails with UnresolvableApportionmentError.
func ResolveNegatives(points []*model.SeriesPoint, group string, comp model.Component, year int, total float64) (Resolution, error) {
	res := Resolution{FlooredDeficit: make(map[string]float64)}

	for pass := 0; pass <= len(points); pass++ {
		var deficit float64
		for _, p := range points {
			if p.Value < 0 {
				res.FlooredDeficit[p.Unit] += -p.Value
				deficit += -p.Value
				p.Advance(0, model.ProvenanceFloored)
			}
		}
		if deficit == 0 {
			res.Passes = pass
			return res, nil
		}

		var posSum float64
		for _, p := range points {
			if p.Provenance != model.ProvenanceFloored && p.Value > 0 {
				posSum += p.Value
			}
		}
		if posSum <= 0 {
			return res, &model.UnresolvableApportionmentError{
				Group:        group,
				Component:    comp,
				Year:         year,
				ControlTotal: total,
			}
		}
		for _, p := range points {
			if p.Provenance != model.ProvenanceFloored && p.Value > 0 {
				p.Advance(p.Value-deficit*p.Value/posSum, model.ProvenanceApportioned)
			}
		}
	}

	// Unreachable: every pass either returns or floors a unit.
	return res, &model.UnresolvableApportionmentError{Group: group, Component: comp, Year: year, ControlTotal: total}
}
