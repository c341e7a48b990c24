// Package flagging marks unreliable points ahead of imputation. Criteria
// combine explicit analyst overrides with an automatic spike rule; flagging
// only ever sets the flag, values are untouched.
package flagging

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/ONSdigital/gdhi-adj/internal/model"
	"github.com/ONSdigital/gdhi-adj/internal/timeseries"
)

// Override flags specific years of one series, taken from the analyst review
// workbook.
type Override struct {
	Unit      string
	Component model.Component
	Years     []int
}

// Criteria drives the flagging stage.
type Criteria struct {
	Overrides []Override

	// SpikeThreshold is the relative jump that flags a year when exceeded
	// against both neighbours. Zero disables the rule.
	SpikeThreshold float64

	// ComponentThresholds override SpikeThreshold per component.
	ComponentThresholds map[model.Component]float64
}

// Compiled is criteria indexed for per-series application.
type Compiled struct {
	overrides        map[timeseries.Key][]int
	defaultThreshold float64
	perComponent     map[model.Component]float64
}

// Compile validates and indexes the criteria against the run's year span.
// An override naming a unit but no years, repeating a year, or naming a year
// outside the span is an input error.
func (c Criteria) Compile(yearMin, yearMax int) (*Compiled, error) {
	cc := &Compiled{
		overrides:        make(map[timeseries.Key][]int, len(c.Overrides)),
		defaultThreshold: c.SpikeThreshold,
		perComponent:     c.ComponentThresholds,
	}
	for _, ov := range c.Overrides {
		if len(ov.Years) == 0 {
			return nil, eris.Errorf("flagging: override for %s %s names no years", ov.Unit, ov.Component)
		}
		key := timeseries.Key{Unit: ov.Unit, Component: ov.Component}
		seen := make(map[int]bool, len(ov.Years))
		for _, year := range ov.Years {
			if year < yearMin || year > yearMax {
				return nil, eris.Errorf("flagging: override year %d for %s %s outside %d-%d", year, ov.Unit, ov.Component, yearMin, yearMax)
			}
			if seen[year] {
				return nil, eris.Errorf("flagging: override for %s %s repeats year %d", ov.Unit, ov.Component, year)
			}
			seen[year] = true
		}
		cc.overrides[key] = append(cc.overrides[key], ov.Years...)
	}
	return cc, nil
}

// OverrideKeys returns the series the overrides name, for cross-checking
// against the loaded series set.
func (cc *Compiled) OverrideKeys() []timeseries.Key {
	keys := make([]timeseries.Key, 0, len(cc.overrides))
	for key := range cc.overrides {
		keys = append(keys, key)
	}
	return keys
}

func (cc *Compiled) thresholdFor(comp model.Component) float64 {
	if t, ok := cc.perComponent[comp]; ok {
		return t
	}
	return cc.defaultThreshold
}

// FlagSeries applies the compiled criteria to one series and returns the
// number of flagged points. A series left with no unflagged point cannot be
// imputed and fails with InsufficientDataError.
func FlagSeries(s *timeseries.Series, cc *Compiled) (int, error) {
	key := timeseries.Key{Unit: s.Unit, Component: s.Component}
	for _, year := range cc.overrides[key] {
		if p, ok := s.At(year); ok {
			p.Flagged = true
		}
	}

	flagSpikes(s, cc.thresholdFor(s.Component))

	flagged := s.Len() - s.UnflaggedCount()
	if s.UnflaggedCount() == 0 {
		return flagged, &model.InsufficientDataError{Unit: s.Unit, Component: s.Component}
	}
	return flagged, nil
}

// flagSpikes flags years whose value jumps relative to both neighbours by
// more than the threshold. Boundary years are judged against their single
// neighbour. Comparison always uses the raw observed values.
func flagSpikes(s *timeseries.Series, threshold float64) {
	if threshold <= 0 {
		return
	}
	pts := s.Points()
	for i, p := range pts {
		if p.Flagged {
			continue
		}
		jumpPrev := i > 0 && spiked(p.Value, pts[i-1].Value, threshold)
		jumpNext := i < len(pts)-1 && spiked(p.Value, pts[i+1].Value, threshold)
		switch {
		case i == 0:
			p.Flagged = jumpNext
		case i == len(pts)-1:
			p.Flagged = jumpPrev
		default:
			p.Flagged = jumpPrev && jumpNext
		}
	}
}

// spiked reports whether v differs from neighbour n by more than threshold
// in relative terms. Any move off an exact zero counts as a jump.
func spiked(v, n, threshold float64) bool {
	if n == 0 {
		return v != 0
	}
	return math.Abs(v-n) > threshold*math.Abs(n)
}
