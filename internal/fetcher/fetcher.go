// Package fetcher parses tabular input files (XLSX, CSV) into string tables.
// All data loading happens here, before normalization begins; nothing
// downstream performs I/O.
package fetcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is one parsed sheet: a header row plus data rows. Cells are raw
// strings; typing happens in the normalizer.
type Table struct {
	Header []string
	Rows   [][]string
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// ReadFile parses an input file by extension. For XLSX files, sheet selects
// the sheet by name ("" = first sheet); the argument is ignored for CSV.
func ReadFile(path, sheet string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, sheet)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: open csv")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	default:
		return nil, eris.Errorf("fetcher: unsupported file format %q", filepath.Ext(path))
	}
}
