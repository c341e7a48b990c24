// Package prepare assembles the observed table for adjustment: per-component
// sub-files appended into one table, legacy Scottish group codes rebased to
// LADs, and the result written wide with publication suppression applied.
package prepare

import (
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ONSdigital/gdhi-adj/internal/ingest"
	"github.com/ONSdigital/gdhi-adj/internal/model"
)

type seriesKey struct {
	unit string
	comp model.Component
}

// Append reads and concatenates per-component sub-files. Every file must
// cover the same year span, and a (unit, component) series may appear in
// only one file.
func Append(paths []string) ([]model.SeriesPoint, error) {
	if len(paths) == 0 {
		return nil, eris.New("prepare: no input files")
	}

	var (
		pts              []model.SeriesPoint
		firstName        string
		yearMin, yearMax int
	)
	seen := make(map[seriesKey]string)

	for _, path := range paths {
		name := filepath.Base(path)
		filePts, err := ingest.ReadObserved(path)
		if err != nil {
			return nil, err
		}

		lo, hi := span(filePts)
		if firstName == "" {
			firstName, yearMin, yearMax = name, lo, hi
		} else if lo != yearMin || hi != yearMax {
			return nil, eris.Errorf("prepare: %s covers %d-%d but %s covers %d-%d", name, lo, hi, firstName, yearMin, yearMax)
		}

		for i := range filePts {
			key := seriesKey{unit: filePts[i].Unit, comp: filePts[i].Component}
			if prev, ok := seen[key]; ok && prev != name {
				return nil, eris.Errorf("prepare: series %s %s appears in both %s and %s", key.unit, key.comp, prev, name)
			}
			seen[key] = name
		}
		pts = append(pts, filePts...)
	}

	zap.L().Info("prepare: appended sub-component files",
		zap.Int("files", len(paths)),
		zap.Int("points", len(pts)),
	)
	return pts, nil
}

func span(pts []model.SeriesPoint) (int, int) {
	lo, hi := pts[0].Year, pts[0].Year
	for i := range pts {
		if pts[i].Year < lo {
			lo = pts[i].Year
		}
		if pts[i].Year > hi {
			hi = pts[i].Year
		}
	}
	return lo, hi
}

// NeedsMapping reports whether any point carries a legacy Scottish LAU group
// code.
func NeedsMapping(pts []model.SeriesPoint) bool {
	for i := range pts {
		if model.IsLegacyScottishCode(pts[i].Group) {
			return true
		}
	}
	return false
}

// MapGroups rebases group codes through the LAU to LAD correspondence.
// Every legacy S30 code must map; codes the mapper does not know pass
// through unchanged.
func MapGroups(pts []model.SeriesPoint, m *ingest.Mapper) error {
	if m == nil {
		return eris.New("prepare: legacy LAU codes present but no mapper loaded")
	}

	mapped := 0
	for i := range pts {
		p := &pts[i]
		if lad, ok := m.LAD(p.Group); ok {
			if p.Group != lad {
				mapped++
			}
			p.Group = lad
			continue
		}
		if model.IsLegacyScottishCode(p.Group) {
			return eris.Errorf("prepare: no LAD mapping for lau %s", p.Group)
		}
	}

	zap.L().Info("prepare: mapped legacy group codes", zap.Int("points", mapped))
	return nil
}

// CheckComplete verifies the appended table is rectangular: every unit
// carries every component present, and every series covers the full year
// span.
func CheckComplete(pts []model.SeriesPoint) error {
	if len(pts) == 0 {
		return eris.New("prepare: no points")
	}

	units := make(map[string]bool)
	comps := make(map[model.Component]bool)
	count := make(map[seriesKey]int)
	for i := range pts {
		p := &pts[i]
		units[p.Unit] = true
		comps[p.Component] = true
		count[seriesKey{unit: p.Unit, comp: p.Component}]++
	}

	lo, hi := span(pts)
	want := hi - lo + 1

	sortedUnits := make([]string, 0, len(units))
	for u := range units {
		sortedUnits = append(sortedUnits, u)
	}
	sort.Strings(sortedUnits)
	sortedComps := make([]model.Component, 0, len(comps))
	for c := range comps {
		sortedComps = append(sortedComps, c)
	}
	sort.Slice(sortedComps, func(i, j int) bool { return sortedComps[i] < sortedComps[j] })

	for _, unit := range sortedUnits {
		for _, comp := range sortedComps {
			n := count[seriesKey{unit: unit, comp: comp}]
			if n == 0 {
				return eris.Errorf("prepare: unit %s missing component %s", unit, comp)
			}
			if n != want {
				return eris.Errorf("prepare: series %s %s covers %d of %d years", unit, comp, n, want)
			}
		}
	}
	return nil
}

// CheckNoNegatives rejects negative values in the prepared table.
func CheckNoNegatives(pts []model.SeriesPoint) error {
	for i := range pts {
		p := &pts[i]
		if p.Value < 0 {
			return eris.Errorf("prepare: negative value for %s %s year %d: %g", p.Unit, p.Component, p.Year, p.Value)
		}
	}
	return nil
}
