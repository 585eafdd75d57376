package gtfs

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table holds one parsed GTFS file with its columns already filtered
// down to the schema allow-list and every cell converted to the
// declared storage type. Empty cells are normalized to nil so the
// store sees an explicit NULL marker.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// ReadTable parses one GTFS text file from dir into a Table. A missing
// file returns (nil, nil); callers validate required files up front.
func ReadTable(dir string, def TableDef) (*Table, error) {
	path := filepath.Join(dir, def.File)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", def.File, err)
	}
	defer f.Close()

	reader := bomAwareCSVReader(f)
	header, err := reader.Read()
	if err == io.EOF {
		return &Table{Name: def.Name}, nil
	}
	if err != nil {
		return nil, &ParseError{File: def.File, Row: 1, Err: err}
	}
	reader.ReuseRecord = true

	// Intersect the file's header with the declared columns; anything
	// unknown is dropped.
	var columns []string
	var fileIdx []int
	var colDefs []ColumnDef
	for i, name := range header {
		name = strings.TrimSpace(name)
		col, ok := def.Column(name)
		if !ok {
			continue
		}
		columns = append(columns, name)
		fileIdx = append(fileIdx, i)
		colDefs = append(colDefs, col)
	}

	table := &Table{Name: def.Name, Columns: columns}
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			return nil, &ParseError{File: def.File, Row: rowNum, Err: err}
		}
		row := make([]any, len(columns))
		for j, i := range fileIdx {
			value, err := convertCell(colDefs[j], record[i])
			if err != nil {
				return nil, &ParseError{File: def.File, Row: rowNum, Err: err}
			}
			row[j] = value
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// convertCell turns raw cell text into the declared storage type, or
// nil when the cell is empty.
func convertCell(col ColumnDef, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	switch col.Type {
	case Integer:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %q is not an integer", col.Name, raw)
		}
		return n, nil
	case Real:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %q is not a number", col.Name, raw)
		}
		return f, nil
	default:
		return raw, nil
	}
}

// bomAwareCSVReader strips a UTF BOM if one is present at the start of
// the data. Agencies export GTFS from tools that emit one routinely.
func bomAwareCSVReader(reader io.Reader) *csv.Reader {
	transformer := unicode.BOMOverride(encoding.Nop.NewDecoder())
	return csv.NewReader(transform.NewReader(reader, transformer))
}
