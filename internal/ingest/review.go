package ingest

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/ONSdigital/gdhi-adj/internal/flagging"
	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// ReadReview loads the analyst review workbook and returns the flagging
// overrides it selects. Only rows with the adjust flag set become overrides,
// and a selected row must name at least one year. Data is read from the
// first sheet.
func ReadReview(path string) ([]flagging.Override, error) {
	name := filepath.Base(path)

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: %s: open workbook", name)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: %s: workbook has no sheets", name)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("ingest: %s: sheet %s is empty", name, sheet.Name)
	}

	colIdx := mapColumns(rowStrings(sheet.Rows[0]))
	unitCol, err := requireColumn(name, colIdx, "unit", "lsoa_code")
	if err != nil {
		return nil, err
	}
	compCol, err := requireColumn(name, colIdx, "component", "transaction")
	if err != nil {
		return nil, err
	}
	adjustCol, err := requireColumn(name, colIdx, "adjust")
	if err != nil {
		return nil, err
	}
	yearsCol, err := requireColumn(name, colIdx, "years", "year", "year_to_adjust")
	if err != nil {
		return nil, err
	}

	seen := make(map[seriesRef]int)
	var overrides []flagging.Override
	for i, r := range sheet.Rows[1:] {
		row := i + 2
		rec := rowStrings(r)
		if blankRow(rec) {
			continue
		}

		unit := model.NormalizeCode(getCol(rec, unitCol))
		if unit == "" {
			return nil, eris.Errorf("ingest: %s row %d: missing unit code", name, row)
		}
		comp := model.Component(strings.ToUpper(getCol(rec, compCol)))
		if comp == "" {
			return nil, eris.Errorf("ingest: %s row %d: missing component", name, row)
		}

		ref := seriesRef{unit: unit, comp: comp}
		if prev, ok := seen[ref]; ok {
			return nil, eris.Errorf("ingest: %s row %d: duplicate review row for %s %s, first at row %d", name, row, unit, comp, prev)
		}
		seen[ref] = row

		years, err := parseYearList(getCol(rec, yearsCol))
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: %s row %d: %s %s", name, row, unit, comp)
		}
		if !parseBoolTrue(getCol(rec, adjustCol)) {
			continue
		}
		if len(years) == 0 {
			return nil, eris.Errorf("ingest: %s row %d: %s %s marked for adjustment but names no years", name, row, unit, comp)
		}

		overrides = append(overrides, flagging.Override{Unit: unit, Component: comp, Years: years})
	}
	return overrides, nil
}

// rowStrings flattens a sheet row to cell strings.
func rowStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

// blankRow reports whether every cell is empty, as trailing workbook rows
// often are.
func blankRow(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
