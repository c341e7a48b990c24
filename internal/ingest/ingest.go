// Package ingest reads the pipeline's input tables: observed values, control
// totals, the analyst review workbook, and the LAU to LAD mapper. Every
// reader validates the header schema before touching rows and reports
// failures with file and row context.
package ingest

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

// utf8BOM is the byte order mark Excel prepends to CSV exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readTable loads a whole CSV file as header plus data rows.
func readTable(path string) ([]string, [][]string, error) {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read file")
	}
	data, err = decodeUTF8(data)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: %s", name)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // allow variable fields

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: %s: parse csv", name)
	}
	if len(records) == 0 {
		return nil, nil, eris.Errorf("ingest: %s: empty file", name)
	}
	return records[0], records[1:], nil
}

// decodeUTF8 strips a UTF-8 BOM and transparently converts Windows-1252
// input to UTF-8. ONS extracts frequently arrive in that encoding; valid
// UTF-8 passes through untouched.
func decodeUTF8(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, eris.Wrap(err, "decode windows-1252")
	}
	return decoded, nil
}

// normalizeCol lowercases and underscores a header cell for cross-format
// column matching: "LSOA Code" → "lsoa_code".
func normalizeCol(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}

// mapColumns builds a normalized column name → index map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[normalizeCol(col)] = i
	}
	return m
}

// requireColumn resolves a column by any of its accepted names. A missing
// column is a schema error naming the canonical form.
func requireColumn(name string, colIdx map[string]int, names ...string) (int, error) {
	for _, n := range names {
		if idx, ok := colIdx[normalizeCol(n)]; ok {
			return idx, nil
		}
	}
	return 0, eris.Errorf("ingest: %s: missing required column %q", name, names[0])
}

// getCol fetches a column value by index, trimmed of space and stray
// quotes. Short records read as empty.
func getCol(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.Trim(strings.TrimSpace(record[idx]), `"`)
}

// yearCol is one year-valued column of a wide table.
type yearCol struct {
	year int
	idx  int
}

// yearColumns finds the four-digit year columns of a wide header and
// validates the span they cover: at least one year, no repeats, no gaps.
func yearColumns(name string, header []string) ([]yearCol, error) {
	var cols []yearCol
	seen := make(map[int]int)
	for i, col := range header {
		year, ok := parseYearName(col)
		if !ok {
			continue
		}
		if prev, dup := seen[year]; dup {
			return nil, eris.Errorf("ingest: %s: year column %d repeated (columns %d and %d)", name, year, prev+1, i+1)
		}
		seen[year] = i
		cols = append(cols, yearCol{year: year, idx: i})
	}
	if len(cols) == 0 {
		return nil, eris.Errorf("ingest: %s: no year columns found", name)
	}

	sort.Slice(cols, func(i, j int) bool { return cols[i].year < cols[j].year })
	for i := 1; i < len(cols); i++ {
		if cols[i].year != cols[i-1].year+1 {
			return nil, eris.Errorf("ingest: %s: missing year column %d", name, cols[i-1].year+1)
		}
	}
	return cols, nil
}

// parseYearName reports whether a header cell names a year: four digits
// starting 1 or 2.
func parseYearName(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 4 || (s[0] != '1' && s[0] != '2') {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	year, _ := strconv.Atoi(s)
	return year, true
}

// parseValue parses a strict finite float. Blank cells and suppression
// markers are not values here; callers add the row context.
func parseValue(s string) (float64, error) {
	if s == "" {
		return 0, eris.New("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Errorf("not finite: %q", s)
	}
	return v, nil
}

// parseYearList parses a comma-separated year list cell: "2010, 2011".
// Surrounding brackets are tolerated, as are float-formatted years from
// spreadsheet exports ("2010.0"). A repeated year is an error.
func parseYearList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var years []int
	seen := make(map[int]bool)
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		year, err := parseYearToken(token)
		if err != nil {
			return nil, err
		}
		if seen[year] {
			return nil, eris.Errorf("year %d repeated", year)
		}
		seen[year] = true
		years = append(years, year)
	}
	return years, nil
}

func parseYearToken(token string) (int, error) {
	if year, err := strconv.Atoi(token); err == nil {
		return year, nil
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, eris.Errorf("not a year: %q", token)
	}
	return int(f), nil
}

// parseBoolTrue reports whether a review flag cell is set: only "TRUE"
// counts, anything else reads false.
func parseBoolTrue(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "TRUE")
}
