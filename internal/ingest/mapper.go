package ingest

import (
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// Mapper is the LAU to LAD correspondence applied when observed data carries
// legacy Scottish group codes.
type Mapper struct {
	lads map[string]string
}

// ReadMapper loads the correspondence table and validates that each LAU maps
// to exactly one LAD. Repeated identical pairs collapse.
func ReadMapper(path string) (*Mapper, error) {
	name := filepath.Base(path)
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}

	colIdx := mapColumns(header)
	lauCol, err := requireColumn(name, colIdx, "lau_code", "mapper_lau_code")
	if err != nil {
		return nil, err
	}
	ladCol, err := requireColumn(name, colIdx, "lad_code", "mapper_lad_code")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("ingest: %s: no data rows", name)
	}

	m := &Mapper{lads: make(map[string]string, len(rows))}
	for i, rec := range rows {
		row := i + 2

		lau := model.NormalizeCode(getCol(rec, lauCol))
		if lau == "" {
			return nil, eris.Errorf("ingest: %s row %d: missing lau code", name, row)
		}
		lad := model.NormalizeCode(getCol(rec, ladCol))
		if lad == "" {
			return nil, eris.Errorf("ingest: %s row %d: missing lad code", name, row)
		}

		if prev, ok := m.lads[lau]; ok && prev != lad {
			return nil, eris.Errorf("ingest: %s row %d: lau %s maps to both %s and %s", name, row, lau, prev, lad)
		}
		m.lads[lau] = lad
	}
	return m, nil
}

// LAD returns the LAD a LAU maps to.
func (m *Mapper) LAD(lau string) (string, bool) {
	lad, ok := m.lads[lau]
	return lad, ok
}

// Len returns the number of mapped LAUs.
func (m *Mapper) Len() int {
	return len(m.lads)
}
