// Package model defines the core data types shared by every stage of the
// adjustment pipeline: series points, geography membership, control totals,
// and the typed error taxonomy.
package model

// Provenance records how a point's current value was produced.
type Provenance string

const (
	ProvenanceObserved     Provenance = "observed"
	ProvenanceInterpolated Provenance = "interpolated"
	ProvenanceExtrapolated Provenance = "extrapolated"
	ProvenanceApportioned  Provenance = "apportioned"
	ProvenanceFloored      Provenance = "floored"
)

// rank orders provenance along the stage order. Imputation (interpolated or
// extrapolated) shares a rank: a point passes through at most one of the two.
func (p Provenance) rank() int {
	switch p {
	case ProvenanceObserved:
		return 0
	case ProvenanceInterpolated, ProvenanceExtrapolated:
		return 1
	case ProvenanceApportioned:
		return 2
	case ProvenanceFloored:
		return 3
	default:
		return -1
	}
}

// Valid reports whether p is one of the defined provenance states.
func (p Provenance) Valid() bool {
	return p.rank() >= 0
}

// SeriesPoint is one (unit, component, year) observation together with its
// current adjusted state. Points are constructed as observed and mutated in
// place by the pipeline stages.
type SeriesPoint struct {
	Unit       string     `json:"unit"`
	Group      string     `json:"group"`
	Component  Component  `json:"component"`
	Year       int        `json:"year"`
	Value      float64    `json:"value"`
	Provenance Provenance `json:"provenance"`
	Flagged    bool       `json:"flagged,omitempty"`
}

// Advance updates the point's value and provenance. Provenance only moves
// forward along the stage order; a lower-ranked provenance updates the value
// but leaves the recorded provenance where it is.
func (p *SeriesPoint) Advance(value float64, prov Provenance) {
	p.Value = value
	if prov.rank() >= p.Provenance.rank() {
		p.Provenance = prov
	}
}

// Resolved reports whether the point's value is usable by the group stages.
// A flagged point is unresolved until imputation has replaced its value.
func (p *SeriesPoint) Resolved() bool {
	return !p.Flagged || p.Provenance != ProvenanceObserved
}
