// Package pipeline orchestrates the adjustment stages: flagging, pre-flight
// validation, imputation, and per-year group reconciliation. Work is
// partitioned by series for the imputation stages and by (group, component)
// slice inside each year for reconciliation; years advance strictly in
// order, so rollback only ever reopens years that are already final.
package pipeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ONSdigital/gdhi-adj/internal/apportion"
	"github.com/ONSdigital/gdhi-adj/internal/flagging"
	"github.com/ONSdigital/gdhi-adj/internal/interpolate"
	"github.com/ONSdigital/gdhi-adj/internal/model"
	"github.com/ONSdigital/gdhi-adj/internal/timeseries"
)

// Options carries the run parameters the stages need.
type Options struct {
	Criteria       flagging.Criteria
	Rollback       apportion.Policy
	ChainedAnchors bool
	MinGroupSize   int
	Tolerance      float64
	Workers        int
}

// Pipeline runs the adjustment stages over one series store.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline, applying defaults for unset options.
func New(opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = apportion.DefaultTolerance
	}
	if opts.MinGroupSize <= 0 {
		opts.MinGroupSize = 3
	}
	if opts.Rollback.Mode == "" {
		opts.Rollback = apportion.DefaultPolicy()
	}
	return &Pipeline{opts: opts}
}

type sliceKey struct {
	group string
	comp  model.Component
}

// groupState is the per-(group, component) state that persists across the
// year loop. Groups partition units, so exactly one worker touches a state
// in any year and the year loop never runs two years at once.
type groupState struct {
	group        string
	comp         model.Component
	series       []*timeseries.Series
	missingUnits []string
	rollbackDone map[string]bool
	skipped      bool
}

// Run executes the full adjustment over the store and returns the run
// report. Structural input problems abort with an error; per-series and
// per-slice failures are collected in the report and leave the rest of the
// run intact.
func (p *Pipeline) Run(ctx context.Context, st *timeseries.Store, controls *model.ControlTotals) (*model.RunReport, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	yearMin, yearMax := st.YearRange()

	report := &model.RunReport{
		StartedAt: time.Now().UTC(),
		YearStart: yearMin,
		YearEnd:   yearMax,
	}

	if err := p.checkControlCoverage(st, controls); err != nil {
		return nil, err
	}

	compiled, err := p.opts.Criteria.Compile(yearMin, yearMax)
	if err != nil {
		return nil, err
	}

	collector := NewCollector()

	trackPhase := func(name string, fn func() error) error {
		start := time.Now()
		log.Info("pipeline: phase starting", zap.String("phase", name))
		err := fn()
		if err != nil {
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Error(err),
			)
			return err
		}
		log.Info("pipeline: phase complete",
			zap.String("phase", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int("failures", collector.FailureCount()),
		)
		return nil
	}

	if err := trackPhase("flag", func() error {
		return p.flagAll(ctx, st, compiled, collector)
	}); err != nil {
		return nil, err
	}

	var skip map[sliceKey]bool
	if err := trackPhase("preflight", func() error {
		skip, err = p.preflight(st, compiled, collector)
		return err
	}); err != nil {
		return nil, err
	}

	if err := trackPhase("impute", func() error {
		return p.imputeAll(ctx, st, collector)
	}); err != nil {
		return nil, err
	}

	if err := trackPhase("reconcile", func() error {
		return p.reconcileAll(ctx, st, controls, collector, skip)
	}); err != nil {
		return nil, err
	}

	report.Counts = countStages(st)
	report.Counts.Rollbacks = collector.Rollbacks()
	report.Failures = collector.Failures()
	report.Residuals = collector.Residuals()
	report.Succeeded = len(report.Failures) == 0
	report.FinishedAt = time.Now().UTC()

	log.Info("pipeline: run complete",
		zap.Int("series", report.Counts.Series),
		zap.Int("flagged_points", report.Counts.FlaggedPoints),
		zap.Int("failures", len(report.Failures)),
		zap.Bool("succeeded", report.Succeeded),
	)
	return report, nil
}

// checkControlCoverage verifies every processed (group, component) has at
// least one control total. A group with none is a structural input error.
func (p *Pipeline) checkControlCoverage(st *timeseries.Store, controls *model.ControlTotals) error {
	for _, comp := range st.Components() {
		for _, group := range st.GroupsFor(comp) {
			if !controls.HasAny(group, comp) {
				return eris.Errorf("pipeline: no control totals for group %s component %s", group, comp)
			}
		}
	}
	return nil
}

func (p *Pipeline) flagAll(ctx context.Context, st *timeseries.Store, compiled *flagging.Compiled, collector *Collector) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, s := range st.All() {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := flagging.FlagSeries(s, compiled); err != nil {
				collector.FailSeries(timeseries.Key{Unit: s.Unit, Component: s.Component}, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// preflight validates the flag distribution. Group checks become recorded
// failures and skip the group's slices; anything else is structural and
// aborts the run.
func (p *Pipeline) preflight(st *timeseries.Store, compiled *flagging.Compiled, collector *Collector) (map[sliceKey]bool, error) {
	skip := make(map[sliceKey]bool)
	for _, err := range flagging.Preflight(st, compiled, p.opts.MinGroupSize) {
		var check *flagging.GroupCheckError
		if !errors.As(err, &check) {
			return nil, err
		}
		skip[sliceKey{group: check.Group, comp: check.Component}] = true
		collector.FailEntry(model.Failure{
			Kind:      model.KindPreflight,
			Group:     check.Group,
			Component: check.Component,
			Message:   check.Error(),
		})
	}
	return skip, nil
}

func (p *Pipeline) imputeAll(ctx context.Context, st *timeseries.Store, collector *Collector) error {
	opts := interpolate.Options{ChainedAnchors: p.opts.ChainedAnchors}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, s := range st.All() {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			key := timeseries.Key{Unit: s.Unit, Component: s.Component}
			if collector.SeriesFailed(key) {
				return nil
			}
			if _, err := interpolate.ResolveSeries(s, opts); err != nil {
				collector.FailSeries(key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) reconcileAll(ctx context.Context, st *timeseries.Store, controls *model.ControlTotals, collector *Collector, skip map[sliceKey]bool) error {
	members := st.Members()

	var states []*groupState
	for _, comp := range st.Components() {
		for _, group := range st.GroupsFor(comp) {
			gs := &groupState{
				group:        group,
				comp:         comp,
				series:       st.GroupSeries(group, comp),
				rollbackDone: make(map[string]bool),
				skipped:      skip[sliceKey{group: group, comp: comp}],
			}
			present := make(map[string]bool, len(gs.series))
			for _, s := range gs.series {
				present[s.Unit] = true
			}
			for _, unit := range members.Units(group) {
				if !present[unit] {
					gs.missingUnits = append(gs.missingUnits, unit)
				}
			}
			states = append(states, gs)
		}
	}

	yearMin, yearMax := st.YearRange()
	for year := yearMin; year <= yearMax; year++ {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.Workers)
		for _, gs := range states {
			g.Go(func() error {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.reconcileSlice(gs, year, yearMin, controls, collector)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// reconcileSlice runs apportionment, negative resolution, and any rollback
// for one (group, component, year). Failures are collected, never returned:
// an individual slice must not abort the batch.
func (p *Pipeline) reconcileSlice(gs *groupState, year, yearMin int, controls *model.ControlTotals, collector *Collector) {
	if gs.skipped {
		return
	}

	total, err := controls.Usable(gs.group, gs.comp, year)
	if err != nil {
		collector.Fail(err)
		return
	}

	missing := append([]string(nil), gs.missingUnits...)
	points := make([]*model.SeriesPoint, 0, len(gs.series))
	for _, s := range gs.series {
		pt, ok := s.At(year)
		if !ok || !pt.Resolved() {
			missing = append(missing, s.Unit)
			continue
		}
		points = append(points, pt)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		collector.Fail(&model.IncompleteGroupError{
			Group:     gs.group,
			Component: gs.comp,
			Year:      year,
			Missing:   missing,
		})
		return
	}

	apportion.Distribute(points, total)

	res, err := apportion.ResolveNegatives(points, gs.group, gs.comp, year, total)
	if err != nil {
		collector.Fail(err)
		return
	}

	if sum := apportion.Sum(points); !apportion.Conserved(sum, total, p.opts.Tolerance) {
		collector.Fail(&model.ConservationError{
			Group:        gs.group,
			Component:    gs.comp,
			Year:         year,
			Sum:          sum,
			ControlTotal: total,
		})
		return
	}

	if !p.opts.Rollback.Triggered(res, total) {
		return
	}

	units := make([]string, 0, len(res.FlooredDeficit))
	for unit := range res.FlooredDeficit {
		units = append(units, unit)
	}
	sort.Strings(units)

	for _, unit := range units {
		if gs.rollbackDone[unit] {
			continue
		}
		gs.rollbackDone[unit] = true

		r, err := apportion.Rollback(gs.series, unit, year, res.FlooredDeficit[unit], yearMin, p.opts.Rollback, p.opts.Tolerance)
		if err != nil {
			collector.Fail(err)
			continue
		}
		collector.CountRollback()
		if r.Residual > 0 {
			collector.Residual(model.RollbackResidual{
				Unit:      unit,
				Component: gs.comp,
				Year:      year,
				Amount:    r.Residual,
			})
		}
		p.revalidateWindow(gs, year, yearMin, controls, collector)
	}
}

// revalidateWindow re-checks conservation of the window years a rollback
// touched before they are treated final again.
func (p *Pipeline) revalidateWindow(gs *groupState, year, yearMin int, controls *model.ControlTotals, collector *Collector) {
	first := year - p.opts.Rollback.WindowYears
	if first < yearMin {
		first = yearMin
	}
	for py := first; py < year; py++ {
		total, err := controls.Usable(gs.group, gs.comp, py)
		if err != nil {
			continue
		}
		var sum float64
		for _, s := range gs.series {
			if pt, ok := s.At(py); ok {
				sum += pt.Value
			}
		}
		if !apportion.Conserved(sum, total, p.opts.Tolerance) {
			collector.Fail(&model.ConservationError{
				Group:        gs.group,
				Component:    gs.comp,
				Year:         py,
				Sum:          sum,
				ControlTotal: total,
			})
		}
	}
}

// countStages reads the final provenance histogram out of the store.
func countStages(st *timeseries.Store) model.StageCounts {
	counts := model.StageCounts{Series: st.Len()}
	for _, pt := range st.Points() {
		if pt.Flagged {
			counts.FlaggedPoints++
		}
		switch pt.Provenance {
		case model.ProvenanceInterpolated:
			counts.Interpolated++
		case model.ProvenanceExtrapolated:
			counts.Extrapolated++
		case model.ProvenanceApportioned:
			counts.Apportioned++
		case model.ProvenanceFloored:
			counts.Floored++
		}
	}
	return counts
}
