package model

import "time"

// RunStatus tracks a run through the store.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the persisted record of one adjustment run.
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	YearStart int       `json:"year_start"`
	YearEnd   int       `json:"year_end"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageCounts summarizes how many points each stage touched.
type StageCounts struct {
	Series        int `json:"series"`
	FlaggedPoints int `json:"flagged_points"`
	Interpolated  int `json:"interpolated"`
	Extrapolated  int `json:"extrapolated"`
	Apportioned   int `json:"apportioned"`
	Floored       int `json:"floored"`
	Rollbacks     int `json:"rollbacks"`
}

// Failure is one report entry for a series or slice that could not be
// adjusted. The failing slice is annotated here and left out of the
// reconciled table rather than silently zeroed.
type Failure struct {
	Kind      string    `json:"kind"`
	Unit      string    `json:"unit,omitempty"`
	Group     string    `json:"group,omitempty"`
	Component Component `json:"component,omitempty"`
	Year      int       `json:"year,omitempty"`
	Message   string    `json:"message"`
}

// RollbackResidual records deficit that a rollback window could not absorb.
// Residuals are diagnostics, not failures.
type RollbackResidual struct {
	Unit      string    `json:"unit"`
	Component Component `json:"component"`
	Year      int       `json:"year"`
	Amount    float64   `json:"amount"`
}

// ScalingFactor compares a constrained group sum against the unconstrained
// input for the same slice. Emitted only when unconstrained data was
// supplied.
type ScalingFactor struct {
	Group     string    `json:"group"`
	Component Component `json:"component"`
	Year      int       `json:"year"`
	Factor    float64   `json:"factor"`
}

// RunReport is the full diagnostic output of one run, persisted alongside the
// reconciled table.
type RunReport struct {
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	YearStart  int                `json:"year_start"`
	YearEnd    int                `json:"year_end"`
	Counts     StageCounts        `json:"counts"`
	Failures   []Failure          `json:"failures,omitempty"`
	Residuals  []RollbackResidual `json:"rollback_residuals,omitempty"`
	Scaling    []ScalingFactor    `json:"scaling_factors,omitempty"`
	Succeeded  bool               `json:"succeeded"`
}
