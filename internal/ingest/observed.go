package ingest

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// seriesRef identifies one wide-table row for duplicate detection.
type seriesRef struct {
	unit string
	comp model.Component
}

// ReadObserved loads a wide observed table into long-form points: one input
// row per (unit, component), one column per year. Point order follows the
// file, years ascending within each row.
func ReadObserved(path string) ([]model.SeriesPoint, error) {
	name := filepath.Base(path)
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	colIdx := mapColumns(header)
	unitCol, err := requireColumn(name, colIdx, "unit", "lsoa_code")
	if err != nil {
		return nil, err
	}
	groupCol, err := requireColumn(name, colIdx, "group", "lad_code")
	if err != nil {
		return nil, err
	}
	compCol, err := requireColumn(name, colIdx, "component", "transaction")
	if err != nil {
		return nil, err
	}
	years, err := yearColumns(name, header)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("ingest: %s: no data rows", name)
	}

	seen := make(map[seriesRef]int, len(rows))
	pts := make([]model.SeriesPoint, 0, len(rows)*len(years))
	for i, rec := range rows {
		row := i + 2 // 1-based, after the header

		unit := model.NormalizeCode(getCol(rec, unitCol))
		if unit == "" {
			return nil, eris.Errorf("ingest: %s row %d: missing unit code", name, row)
		}
		group := model.NormalizeCode(getCol(rec, groupCol))
		if group == "" {
			return nil, eris.Errorf("ingest: %s row %d: missing group code", name, row)
		}
		comp := model.Component(strings.ToUpper(getCol(rec, compCol)))
		if comp == "" {
			return nil, eris.Errorf("ingest: %s row %d: missing component", name, row)
		}

		ref := seriesRef{unit: unit, comp: comp}
		if prev, ok := seen[ref]; ok {
			return nil, eris.Errorf("ingest: %s row %d: duplicate series %s %s, first at row %d", name, row, unit, comp, prev)
		}
		seen[ref] = row

		for _, yc := range years {
			v, err := parseValue(getCol(rec, yc.idx))
			if err != nil {
				return nil, eris.Wrapf(err, "ingest: %s row %d: %s %s year %d", name, row, unit, comp, yc.year)
			}
			pts = append(pts, model.SeriesPoint{
				Unit:       unit,
				Group:      group,
				Component:  comp,
				Year:       yc.year,
				Value:      v,
				Provenance: model.ProvenanceObserved,
			})
		}
	}
	return pts, nil
}
