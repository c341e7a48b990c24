// Package store persists run history and run reports. Two backends implement
// the same interface: SQLite for single-analyst use and Postgres for shared
// deployments.
package store

import (
	"context"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for adjustment runs. A run is
// created before the pipeline starts and either completed with its report or
// failed with the abort cause.
type Store interface {
	CreateRun(ctx context.Context, yearStart, yearEnd int) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, report *model.RunReport) error
	FailRun(ctx context.Context, runID string, cause string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	GetReport(ctx context.Context, runID string) (*model.RunReport, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
