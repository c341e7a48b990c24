package apportion

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/ONSdigital/gdhi-adj/internal/model"
	"github.com/ONSdigital/gdhi-adj/internal/timeseries"
)

// TriggerMode selects when flooring in a year re-opens prior years.
type TriggerMode string

const (
	TriggerNever        TriggerMode = "never"
	TriggerAnyFloor     TriggerMode = "any-floor"
	TriggerDeficitRatio TriggerMode = "deficit-ratio"
)

// WeightScheme splits a unit's deficit across the rollback window.
type WeightScheme string

const (
	WeightsEqual WeightScheme = "equal"
	// WeightsLinear weights window years linearly, heaviest nearest the
	// trigger year.
	WeightsLinear WeightScheme = "linear"
)

// Policy configures cross-year rollback.
type Policy struct {
	Mode         TriggerMode
	DeficitRatio float64
	WindowYears  int
	Weights      WeightScheme
}

// DefaultPolicy returns the rollback policy used when no policy file
// overrides it.
func DefaultPolicy() Policy {
	return Policy{
		Mode:        TriggerAnyFloor,
		WindowYears: 2,
		Weights:     WeightsEqual,
	}
}

// Validate checks the policy fields.
func (p Policy) Validate() error {
	switch p.Mode {
	case TriggerNever, TriggerAnyFloor, TriggerDeficitRatio:
	default:
		return eris.Errorf("apportion: unknown rollback trigger %q", p.Mode)
	}
	switch p.Weights {
	case WeightsEqual, WeightsLinear:
	default:
		return eris.Errorf("apportion: unknown rollback weights %q", p.Weights)
	}
	if p.WindowYears < 0 {
		return eris.Errorf("apportion: negative rollback window %d", p.WindowYears)
	}
	if p.DeficitRatio < 0 {
		return eris.Errorf("apportion: negative deficit ratio %g", p.DeficitRatio)
	}
	return nil
}

// Triggered reports whether a slice's resolution outcome re-opens prior
// years under this policy.
func (p Policy) Triggered(res Resolution, total float64) bool {
	switch p.Mode {
	case TriggerNever:
		return false
	case TriggerDeficitRatio:
		if !res.Floored() {
			return false
		}
		if total == 0 {
			return res.TotalDeficit() > 0
		}
		return res.TotalDeficit()/math.Abs(total) > p.DeficitRatio
	default:
		return res.Floored()
	}
}

// windowWeights returns normalized weights for n window years in ascending
// year order.
func windowWeights(scheme WeightScheme, n int) []float64 {
	weights := make([]float64, n)
	switch scheme {
	case WeightsLinear:
		norm := float64(n*(n+1)) / 2
		for i := range weights {
			weights[i] = float64(i+1) / norm
		}
	default:
		for i := range weights {
			weights[i] = 1 / float64(n)
		}
	}
	return weights
}

// Result summarizes one rollback.
type Result struct {
	Absorbed float64
	Residual float64
}

// Rollback spreads a floored unit's deficit across the prior-year window
// [year-WindowYears, year-1], clipped at yearMin. Each window year absorbs at
// most its weighted share and never more than the unit's value there; what a
// year absorbs moves to the other group members in that year, proportional
// to their current values, so the year's group sum is unchanged. Deficit the
// window cannot absorb is returned as residual.
func Rollback(group []*timeseries.Series, unit string, year int, deficit float64, yearMin int, pol Policy, rtol float64) (Result, error) {
	if deficit <= 0 {
		return Result{}, nil
	}
	first := year - pol.WindowYears
	if first < yearMin {
		first = yearMin
	}
	last := year - 1
	if last < first {
		return Result{Residual: deficit}, nil
	}

	var target *timeseries.Series
	for _, s := range group {
		if s.Unit == unit {
			target = s
			break
		}
	}
	if target == nil {
		return Result{}, eris.Errorf("apportion: rollback unit %s not in group", unit)
	}

	weights := windowWeights(pol.Weights, last-first+1)

	var absorbed float64
	for i, py := 0, first; py <= last; i, py = i+1, py+1 {
		pu, ok := target.At(py)
		if !ok {
			return Result{}, eris.Errorf("apportion: rollback unit %s missing year %d", unit, py)
		}
		give := math.Min(pu.Value, deficit*weights[i])
		if give <= 0 {
			continue
		}

		var posSum float64
		for _, s := range group {
			if s.Unit == unit {
				continue
			}
			if p, ok := s.At(py); ok && p.Value > 0 {
				posSum += p.Value
			}
		}
		if posSum <= 0 {
			continue
		}

		preSum := groupSumAt(group, py)
		pu.Advance(pu.Value-give, model.ProvenanceApportioned)
		for _, s := range group {
			if s.Unit == unit {
				continue
			}
			if p, ok := s.At(py); ok && p.Value > 0 {
				p.Advance(p.Value+give*p.Value/posSum, model.ProvenanceApportioned)
			}
		}
		if postSum := groupSumAt(group, py); !Conserved(postSum, preSum, rtol) {
			return Result{}, eris.Errorf("apportion: rollback broke conservation in year %d", py)
		}
		absorbed += give
	}
	return Result{Absorbed: absorbed, Residual: deficit - absorbed}, nil
}

func groupSumAt(group []*timeseries.Series, year int) float64 {
	var sum float64
	for _, s := range group {
		if p, ok := s.At(year); ok {
			sum += p.Value
		}
	}
	return sum
}
