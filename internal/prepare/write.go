package prepare

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// suppressedUnitPrefixes matches Scottish and Northern Ireland units in both
// the legacy (95…) and GSS (S…, N00…) numberings.
var suppressedUnitPrefixes = []string{"S", "95", "N00"}

// suppressed reports whether a cell is withheld from the prepared output.
// Social assistance figures for Scotland and Northern Ireland are not
// published at unit level.
func suppressed(unit string, comp model.Component) bool {
	if comp != model.ComponentOtherBenefits {
		return false
	}
	for _, p := range suppressedUnitPrefixes {
		if strings.HasPrefix(unit, p) {
			return true
		}
	}
	return false
}

// WritePrepared writes the assembled table wide: one row per
// (unit, component) with one column per year, suppression markers applied.
// Rows are ordered by unit then component.
func WritePrepared(path string, pts []model.SeriesPoint) error {
	if len(pts) == 0 {
		return eris.New("prepare: no points to write")
	}

	lo, hi := span(pts)
	values := make(map[seriesKey]map[int]float64)
	groups := make(map[seriesKey]string)
	for i := range pts {
		p := &pts[i]
		key := seriesKey{unit: p.Unit, comp: p.Component}
		if values[key] == nil {
			values[key] = make(map[int]float64, hi-lo+1)
		}
		values[key][p.Year] = p.Value
		groups[key] = p.Group
	}

	keys := make([]seriesKey, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].unit != keys[j].unit {
			return keys[i].unit < keys[j].unit
		}
		return keys[i].comp < keys[j].comp
	})

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "prepare: create output file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"unit", "group", "component"}
	for year := lo; year <= hi; year++ {
		header = append(header, strconv.Itoa(year))
	}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "prepare: write header")
	}

	for _, key := range keys {
		rec := []string{key.unit, groups[key], string(key.comp)}
		for year := lo; year <= hi; year++ {
			v, ok := values[key][year]
			if !ok {
				return eris.Errorf("prepare: series %s %s has no value for %d", key.unit, key.comp, year)
			}
			if suppressed(key.unit, key.comp) {
				rec = append(rec, "X")
				continue
			}
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "prepare: write row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "prepare: flush output")
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "prepare: close output")
	}

	zap.L().Info("prepare: wrote prepared table",
		zap.String("path", path),
		zap.Int("rows", len(keys)),
	)
	return nil
}
