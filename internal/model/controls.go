package model

import (
	"math"

	"github.com/rotisserie/eris"
)

// ControlKey identifies one constrained (group, component, year) slice.
type ControlKey struct {
	Group     string
	Component Component
	Year      int
}

// ControlTotals holds the group-level constrained values the reconciled
// figures must sum to. Totals are read-only input: the pipeline never derives
// or modifies them.
type ControlTotals struct {
	totals map[ControlKey]float64
}

// NewControlTotals returns an empty ControlTotals.
func NewControlTotals() *ControlTotals {
	return &ControlTotals{totals: make(map[ControlKey]float64)}
}

// Set records the total for one slice. Recording the same slice twice is an
// input error.
func (c *ControlTotals) Set(group string, comp Component, year int, value float64) error {
	key := ControlKey{Group: group, Component: comp, Year: year}
	if _, ok := c.totals[key]; ok {
		return eris.Errorf("model: duplicate control total for %s %s %d", group, comp, year)
	}
	c.totals[key] = value
	return nil
}

// Get returns the total for a slice. The second result is false when no total
// was loaded for the slice.
func (c *ControlTotals) Get(group string, comp Component, year int) (float64, bool) {
	v, ok := c.totals[ControlKey{Group: group, Component: comp, Year: year}]
	return v, ok
}

// Usable returns the total for a slice, rejecting missing and non-finite
// values with InvalidControlTotalError.
func (c *ControlTotals) Usable(group string, comp Component, year int) (float64, error) {
	v, ok := c.Get(group, comp, year)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InvalidControlTotalError{Group: group, Component: comp, Year: year}
	}
	return v, nil
}

// HasAny reports whether at least one total exists for (group, component) in
// any year. A group with none at all for a processed component is a
// structural input error, distinct from a single missing year.
func (c *ControlTotals) HasAny(group string, comp Component) bool {
	for key := range c.totals {
		if key.Group == group && key.Component == comp {
			return true
		}
	}
	return false
}

// Len returns the number of loaded totals.
func (c *ControlTotals) Len() int {
	return len(c.totals)
}
