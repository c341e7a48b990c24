package model

import (
	"errors"
	"fmt"
	"strings"
)

// The adjustment stages report failures with typed errors carrying enough
// locator detail to name the series or slice that failed. Callers detect them
// with errors.As; wrapping for transport context happens at the layer
// boundaries.

// InsufficientDataError reports a series with no usable anchor point, so no
// value can be imputed for its flagged years.
type InsufficientDataError struct {
	Unit      string
	Component Component
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: no anchor for unit %s component %s", e.Unit, e.Component)
}

// IncompleteGroupError reports an apportionment slice that cannot run because
// one or more member units have no resolved candidate value.
type IncompleteGroupError struct {
	Group     string
	Component Component
	Year      int
	Missing   []string
}

func (e *IncompleteGroupError) Error() string {
	return fmt.Sprintf("incomplete group %s component %s year %d: missing units %s",
		e.Group, e.Component, e.Year, strings.Join(e.Missing, ", "))
}

// UnresolvableApportionmentError reports a slice where negative resolution
// floored every member while the control total is still non-zero.
type UnresolvableApportionmentError struct {
	Group        string
	Component    Component
	Year         int
	ControlTotal float64
}

func (e *UnresolvableApportionmentError) Error() string {
	return fmt.Sprintf("unresolvable apportionment for group %s component %s year %d: all units floored, control total %g",
		e.Group, e.Component, e.Year, e.ControlTotal)
}

// InvalidControlTotalError reports a slice whose control total is missing or
// non-finite.
type InvalidControlTotalError struct {
	Group     string
	Component Component
	Year      int
}

func (e *InvalidControlTotalError) Error() string {
	return fmt.Sprintf("invalid control total for group %s component %s year %d", e.Group, e.Component, e.Year)
}

// ConservationError reports a reconciled slice whose member sum drifted from
// its control total beyond tolerance.
type ConservationError struct {
	Group        string
	Component    Component
	Year         int
	Sum          float64
	ControlTotal float64
}

func (e *ConservationError) Error() string {
	return fmt.Sprintf("group %s component %s year %d does not conserve its control total: sum %g against %g",
		e.Group, e.Component, e.Year, e.Sum, e.ControlTotal)
}

// Failure kinds used in run reports.
const (
	KindInsufficientData = "insufficient_data"
	KindIncompleteGroup  = "incomplete_group"
	KindUnresolvable     = "unresolvable_apportionment"
	KindInvalidControl   = "invalid_control_total"
	KindConservation     = "conservation"
	KindPreflight        = "preflight_check"
	KindOther            = "error"
)

// FailureFor builds a report entry from a stage error, extracting the
// locator from whichever typed error is in the chain.
func FailureFor(err error) Failure {
	var insufficient *InsufficientDataError
	if errors.As(err, &insufficient) {
		return Failure{
			Kind:      KindInsufficientData,
			Unit:      insufficient.Unit,
			Component: insufficient.Component,
			Message:   err.Error(),
		}
	}
	var incomplete *IncompleteGroupError
	if errors.As(err, &incomplete) {
		return Failure{
			Kind:      KindIncompleteGroup,
			Group:     incomplete.Group,
			Component: incomplete.Component,
			Year:      incomplete.Year,
			Message:   err.Error(),
		}
	}
	var unresolvable *UnresolvableApportionmentError
	if errors.As(err, &unresolvable) {
		return Failure{
			Kind:      KindUnresolvable,
			Group:     unresolvable.Group,
			Component: unresolvable.Component,
			Year:      unresolvable.Year,
			Message:   err.Error(),
		}
	}
	var invalid *InvalidControlTotalError
	if errors.As(err, &invalid) {
		return Failure{
			Kind:      KindInvalidControl,
			Group:     invalid.Group,
			Component: invalid.Component,
			Year:      invalid.Year,
			Message:   err.Error(),
		}
	}
	var conservation *ConservationError
	if errors.As(err, &conservation) {
		return Failure{
			Kind:      KindConservation,
			Group:     conservation.Group,
			Component: conservation.Component,
			Year:      conservation.Year,
			Message:   err.Error(),
		}
	}
	return Failure{Kind: KindOther, Message: err.Error()}
}
