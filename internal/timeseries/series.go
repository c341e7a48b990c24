// Package timeseries holds the in-memory series set the adjustment stages
// operate on. It exposes lookup and anchor accessors only; stage logic lives
// with the stages.
package timeseries

import (
	"sort"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// Key identifies one series.
type Key struct {
	Unit      string
	Component model.Component
}

// Series is the year-ordered run of points for one (unit, component).
type Series struct {
	Unit      string
	Component model.Component

	points []*model.SeriesPoint
	byYear map[int]int
}

func newSeries(unit string, comp model.Component) *Series {
	return &Series{
		Unit:      unit,
		Component: comp,
		byYear:    make(map[int]int),
	}
}

func (s *Series) add(p *model.SeriesPoint) bool {
	if _, dup := s.byYear[p.Year]; dup {
		return false
	}
	s.byYear[p.Year] = len(s.points)
	s.points = append(s.points, p)
	return true
}

func (s *Series) sortByYear() {
	sort.Slice(s.points, func(i, j int) bool { return s.points[i].Year < s.points[j].Year })
	for i, p := range s.points {
		s.byYear[p.Year] = i
	}
}

// At returns the point for a year.
func (s *Series) At(year int) (*model.SeriesPoint, bool) {
	i, ok := s.byYear[year]
	if !ok {
		return nil, false
	}
	return s.points[i], true
}

// Points returns the points in ascending year order. Callers mutate points in
// place through the returned pointers.
func (s *Series) Points() []*model.SeriesPoint {
	return s.points
}

// Years returns the years covered, ascending.
func (s *Series) Years() []int {
	years := make([]int, len(s.points))
	for i, p := range s.points {
		years[i] = p.Year
	}
	return years
}

// Len returns the number of points.
func (s *Series) Len() int {
	return len(s.points)
}

// FlaggedYears returns the years currently flagged, ascending.
func (s *Series) FlaggedYears() []int {
	var years []int
	for _, p := range s.points {
		if p.Flagged {
			years = append(years, p.Year)
		}
	}
	return years
}

// UnflaggedCount returns how many points are not flagged.
func (s *Series) UnflaggedCount() int {
	n := 0
	for _, p := range s.points {
		if !p.Flagged {
			n++
		}
	}
	return n
}

// anchorEligible reports whether a point may anchor imputation. Observed
// unflagged points always qualify; previously imputed points qualify only
// under the chained-anchors policy.
func anchorEligible(p *model.SeriesPoint, chained bool) bool {
	if !p.Flagged && p.Provenance == model.ProvenanceObserved {
		return true
	}
	if !chained {
		return false
	}
	return p.Provenance == model.ProvenanceInterpolated || p.Provenance == model.ProvenanceExtrapolated
}

// AnchorBefore returns the nearest eligible point strictly before year,
// walking outward past flagged years.
func (s *Series) AnchorBefore(year int, chained bool) (*model.SeriesPoint, bool) {
	i, ok := s.byYear[year]
	if !ok {
		return nil, false
	}
	for i--; i >= 0; i-- {
		if anchorEligible(s.points[i], chained) {
			return s.points[i], true
		}
	}
	return nil, false
}

// AnchorAfter returns the nearest eligible point strictly after year.
func (s *Series) AnchorAfter(year int, chained bool) (*model.SeriesPoint, bool) {
	i, ok := s.byYear[year]
	if !ok {
		return nil, false
	}
	for i++; i < len(s.points); i++ {
		if anchorEligible(s.points[i], chained) {
			return s.points[i], true
		}
	}
	return nil, false
}

// Anchors returns all eligible anchor points in ascending year order.
func (s *Series) Anchors(chained bool) []*model.SeriesPoint {
	var out []*model.SeriesPoint
	for _, p := range s.points {
		if anchorEligible(p, chained) {
			out = append(out, p)
		}
	}
	return out
}
