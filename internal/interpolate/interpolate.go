// Package interpolate fills flagged points from their series anchors. A gap
// with anchors on both sides is interpolated linearly against the year; a gap
// with anchors on one side only is extrapolated with the slope of the two
// nearest anchors beyond it, or held flat when only one anchor exists.
package interpolate

import (
	"github.com/ONSdigital/gdhi-adj/internal/model"
	"github.com/ONSdigital/gdhi-adj/internal/timeseries"
)

// Options configures imputation.
type Options struct {
	// ChainedAnchors lets previously imputed points anchor later gaps in the
	// same series. Off by default: only observed points anchor.
	ChainedAnchors bool
}

// Counts reports how many points each imputation mode produced.
type Counts struct {
	Interpolated int
	Extrapolated int
}

// ResolveSeries imputes every flagged point of one series, in ascending year
// order. A series with no anchor at all fails with InsufficientDataError and
// its flagged points stay unresolved.
func ResolveSeries(s *timeseries.Series, opts Options) (Counts, error) {
	var counts Counts
	for _, year := range s.FlaggedYears() {
		p, _ := s.At(year)
		if p.Resolved() {
			continue
		}

		prev, hasPrev := s.AnchorBefore(year, opts.ChainedAnchors)
		next, hasNext := s.AnchorAfter(year, opts.ChainedAnchors)

		switch {
		case hasPrev && hasNext:
			p.Advance(lerp(prev, next, year), model.ProvenanceInterpolated)
			counts.Interpolated++
		case hasNext:
			second, hasSecond := s.AnchorAfter(next.Year, opts.ChainedAnchors)
			p.Advance(extrapolate(next, second, hasSecond, year), model.ProvenanceExtrapolated)
			counts.Extrapolated++
		case hasPrev:
			second, hasSecond := s.AnchorBefore(prev.Year, opts.ChainedAnchors)
			p.Advance(extrapolate(prev, second, hasSecond, year), model.ProvenanceExtrapolated)
			counts.Extrapolated++
		default:
			return counts, &model.InsufficientDataError{Unit: s.Unit, Component: s.Component}
		}
	}
	return counts, nil
}

// lerp interpolates linearly between two anchors with year as the
// independent variable.
func lerp(prev, next *model.SeriesPoint, year int) float64 {
	span := float64(next.Year - prev.Year)
	return prev.Value + (next.Value-prev.Value)*float64(year-prev.Year)/span
}

// extrapolate projects from the nearest anchor using the slope between the
// two nearest anchors beyond the gap. With a single anchor the value is held
// flat.
func extrapolate(nearest, second *model.SeriesPoint, hasSecond bool, year int) float64 {
	if !hasSecond {
		return nearest.Value
	}
	slope := (second.Value - nearest.Value) / float64(second.Year-nearest.Year)
	return nearest.Value + slope*float64(year-nearest.Year)
}
