package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ONSdigital/gdhi-adj/internal/export"
	"github.com/ONSdigital/gdhi-adj/internal/flagging"
	"github.com/ONSdigital/gdhi-adj/internal/ingest"
	"github.com/ONSdigital/gdhi-adj/internal/model"
	"github.com/ONSdigital/gdhi-adj/internal/pipeline"
	"github.com/ONSdigital/gdhi-adj/internal/policy"
	"github.com/ONSdigital/gdhi-adj/internal/store"
	"github.com/ONSdigital/gdhi-adj/internal/timeseries"
)

// runInputs is everything the pipeline consumes, assembled from the
// configured input files.
type runInputs struct {
	Series   *timeseries.Store
	Controls *model.ControlTotals
	Options  pipeline.Options
}

// loadInputs reads the observed table, control totals, optional review
// workbook, and optional policy file, and builds the pipeline options.
func loadInputs() (*runInputs, error) {
	pts, err := ingest.ReadObserved(cfg.Input.Observed)
	if err != nil {
		return nil, err
	}
	pts = clampYears(pts, cfg.Years.Start, cfg.Years.End)

	members, err := model.MembershipFromPoints(pts)
	if err != nil {
		return nil, err
	}

	series, err := timeseries.New(pts, members)
	if err != nil {
		return nil, err
	}

	controls, err := ingest.ReadControls(cfg.Input.Controls)
	if err != nil {
		return nil, err
	}

	var overrides []flagging.Override
	if cfg.Input.Review != "" {
		overrides, err = ingest.ReadReview(cfg.Input.Review)
		if err != nil {
			return nil, err
		}
	}

	pol := policy.Default()
	if cfg.Adjustment.PolicyFile != "" {
		pol, err = policy.Load(cfg.Adjustment.PolicyFile)
		if err != nil {
			return nil, err
		}
	}

	rollback := pol.RollbackPolicy(cfg.Adjustment.RollbackYears)
	if err := rollback.Validate(); err != nil {
		return nil, err
	}

	return &runInputs{
		Series:   series,
		Controls: controls,
		Options: pipeline.Options{
			Criteria: flagging.Criteria{
				Overrides:           overrides,
				SpikeThreshold:      cfg.Adjustment.SpikeThreshold,
				ComponentThresholds: pol.ComponentThresholds(),
			},
			Rollback:       rollback,
			ChainedAnchors: pol.ChainedAnchors,
			MinGroupSize:   cfg.Adjustment.MinGroupSize,
			Tolerance:      cfg.Adjustment.Tolerance,
			Workers:        cfg.Adjustment.Workers,
		},
	}, nil
}

// clampYears keeps the points inside the configured span. Zero bounds mean
// the full span of the file.
func clampYears(pts []model.SeriesPoint, start, end int) []model.SeriesPoint {
	if start == 0 && end == 0 {
		return pts
	}
	out := pts[:0]
	for _, p := range pts {
		if start != 0 && p.Year < start {
			continue
		}
		if end != 0 && p.Year > end {
			continue
		}
		out = append(out, p)
	}
	return out
}

// scalingFactors derives the unconstrained-vs-control diagnostics when an
// unconstrained table was supplied.
func scalingFactors(in *runInputs) ([]model.ScalingFactor, error) {
	if cfg.Input.Unconstrained == "" {
		return nil, nil
	}

	pts, err := ingest.ReadObserved(cfg.Input.Unconstrained)
	if err != nil {
		return nil, err
	}
	pts = clampYears(pts, cfg.Years.Start, cfg.Years.End)
	members, err := model.MembershipFromPoints(pts)
	if err != nil {
		return nil, err
	}
	unconstrained, err := timeseries.New(pts, members)
	if err != nil {
		return nil, err
	}
	return pipeline.ScalingFactors(unconstrained, in.Controls), nil
}

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Run the full adjustment: flag, impute, apportion, export",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("component", "adjust"))

		if err := cfg.Validate("adjust"); err != nil {
			return err
		}

		in, err := loadInputs()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		yearMin, yearMax := in.Series.YearRange()
		run, err := st.CreateRun(ctx, yearMin, yearMax)
		if err != nil {
			return err
		}
		log.Info("adjust: run created", zap.String("run_id", run.ID))

		report, err := pipeline.New(in.Options).Run(ctx, in.Series, in.Controls)
		if err != nil {
			failRun(ctx, st, run.ID, err)
			return err
		}
		report.RunID = run.ID

		report.Scaling, err = scalingFactors(in)
		if err != nil {
			failRun(ctx, st, run.ID, err)
			return err
		}

		if err := export.WriteReconciled(cfg.Output.Reconciled, in.Series, report.Failures, cfg.Adjustment.Precision); err != nil {
			failRun(ctx, st, run.ID, err)
			return err
		}
		if err := export.WriteReport(cfg.Output.Report, report); err != nil {
			failRun(ctx, st, run.ID, err)
			return err
		}

		if err := st.CompleteRun(ctx, run.ID, report); err != nil {
			return err
		}

		fmt.Fprint(os.Stdout, export.Summary(report))

		if !report.Succeeded {
			return eris.Errorf("adjust: %d slices failed; see %s", len(report.Failures), cfg.Output.Report)
		}
		return nil
	},
}

// failRun marks the run failed in the store; the original error wins over any
// store problem.
func failRun(ctx context.Context, st store.Store, runID string, cause error) {
	if err := st.FailRun(ctx, runID, cause.Error()); err != nil {
		zap.L().Error("adjust: mark run failed", zap.String("run_id", runID), zap.Error(err))
	}
}

func init() {
	rootCmd.AddCommand(adjustCmd)
}
