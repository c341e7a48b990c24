// Package export writes the run's outputs: the reconciled long-form table,
// the run report JSON, and a human-readable summary.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ONSdigital/gdhi-adj/internal/model"
	"github.com/ONSdigital/gdhi-adj/internal/timeseries"
)

type seriesKey struct {
	unit string
	comp model.Component
}

type sliceKey struct {
	group string
	comp  model.Component
}

type sliceYearKey struct {
	group string
	comp  model.Component
	year  int
}

// exclusions indexes report failures by scope so the writer can tell which
// points were never reconciled.
type exclusions struct {
	series map[seriesKey]bool
	groups map[sliceKey]bool
	slices map[sliceYearKey]bool
}

func newExclusions(failures []model.Failure) *exclusions {
	e := &exclusions{
		series: make(map[seriesKey]bool),
		groups: make(map[sliceKey]bool),
		slices: make(map[sliceYearKey]bool),
	}
	for _, f := range failures {
		switch {
		case f.Unit != "" && f.Group == "":
			e.series[seriesKey{unit: f.Unit, comp: f.Component}] = true
		case f.Group != "" && f.Year != 0:
			e.slices[sliceYearKey{group: f.Group, comp: f.Component, year: f.Year}] = true
		case f.Group != "":
			e.groups[sliceKey{group: f.Group, comp: f.Component}] = true
		}
	}
	return e
}

func (e *exclusions) excluded(pt *model.SeriesPoint) bool {
	return e.series[seriesKey{unit: pt.Unit, comp: pt.Component}] ||
		e.groups[sliceKey{group: pt.Group, comp: pt.Component}] ||
		e.slices[sliceYearKey{group: pt.Group, comp: pt.Component, year: pt.Year}]
}

// WriteReconciled writes the adjusted table long: one row per point with its
// provenance, values rounded to precision decimal places. Points of failed
// series and slices are left out rather than written unreconciled; the run
// report names them.
func WriteReconciled(path string, st *timeseries.Store, failures []model.Failure, precision int) error {
	drop := newExclusions(failures)

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create output file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"unit", "group", "component", "year", "value", "provenance"}); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	written := 0
	for _, pt := range st.Points() {
		if drop.excluded(pt) {
			continue
		}
		rec := []string{
			pt.Unit,
			pt.Group,
			string(pt.Component),
			strconv.Itoa(pt.Year),
			strconv.FormatFloat(pt.Value, 'f', precision, 64),
			string(pt.Provenance),
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "export: write row")
		}
		written++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush output")
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "export: close output")
	}

	zap.L().Info("export: wrote reconciled table",
		zap.String("path", path),
		zap.Int("rows", written),
		zap.Int("excluded_failures", len(failures)),
	)
	return nil
}

// WriteReport writes the run report as indented JSON.
func WriteReport(path string, report *model.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal report")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrap(err, "export: write report")
	}

	zap.L().Info("export: wrote run report", zap.String("path", path))
	return nil
}
