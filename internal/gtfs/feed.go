package gtfs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Feed is a validated handle on one GTFS feed directory. Opening a
// feed only checks that the required files exist; parsing happens when
// Tables is called during a store build.
type Feed struct {
	dir  string
	name string
}

// Open validates dir as a GTFS feed directory. If any required file is
// absent it returns a MissingRequiredFilesError listing every missing
// file, not just the first.
func Open(dir string) (*Feed, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed directory: %w", err)
	}
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.Name()] = true
	}
	var missing []string
	for _, file := range RequiredFiles() {
		if !present[file] {
			missing = append(missing, file)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingRequiredFilesError{Dir: dir, Files: missing}
	}
	return &Feed{dir: dir, name: filepath.Base(filepath.Clean(dir))}, nil
}

// Name is the feed's identity: the base name of its directory. The
// store file on disk is derived from it.
func (f *Feed) Name() string {
	return f.name
}

// Dir returns the feed's source directory.
func (f *Feed) Dir() string {
	return f.dir
}

// Tables parses every GTFS file of interest in schema (foreign-key
// dependency) order. Optional files that are absent are skipped. Any
// parse failure aborts the whole read.
func (f *Feed) Tables() ([]*Table, error) {
	var tables []*Table
	for _, def := range Tables {
		table, err := ReadTable(f.dir, def)
		if err != nil {
			return nil, err
		}
		if table == nil {
			continue
		}
		tables = append(tables, table)
	}
	return tables, nil
}
