package ingest

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// ReadControls loads the long control-totals table: one row per
// (group, component, year).
func ReadControls(path string) (*model.ControlTotals, error) {
	name := filepath.Base(path)
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	colIdx := mapColumns(header)
	groupCol, err := requireColumn(name, colIdx, "group", "lad_code")
	if err != nil {
		return nil, err
	}
	compCol, err := requireColumn(name, colIdx, "component", "transaction")
	if err != nil {
		return nil, err
	}
	yearCol, err := requireColumn(name, colIdx, "year")
	if err != nil {
		return nil, err
	}
	valueCol, err := requireColumn(name, colIdx, "value", "total")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("ingest: %s: no data rows", name)
	}

	totals := model.NewControlTotals()
	for i, rec := range rows {
		row := i + 2

		group := model.NormalizeCode(getCol(rec, groupCol))
		if group == "" {
			return nil, eris.Errorf("ingest: %s row %d: missing group code", name, row)
		}
		comp := model.Component(strings.ToUpper(getCol(rec, compCol)))
		if comp == "" {
			return nil, eris.Errorf("ingest: %s row %d: missing component", name, row)
		}
		year, err := strconv.Atoi(getCol(rec, yearCol))
		if err != nil {
			return nil, eris.Errorf("ingest: %s row %d: bad year %q", name, row, getCol(rec, yearCol))
		}
		v, err := parseValue(getCol(rec, valueCol))
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: %s row %d: %s %s year %d", name, row, group, comp, year)
		}

		if err := totals.Set(group, comp, year, v); err != nil {
			return nil, eris.Wrapf(err, "ingest: %s row %d", name, row)
		}
	}
	return totals, nil
}
