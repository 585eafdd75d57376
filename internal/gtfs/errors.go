package gtfs

import (
	"fmt"
	"strings"
)

// MissingRequiredFilesError reports every required GTFS file absent
// from a feed directory, not just the first one found missing.
type MissingRequiredFilesError struct {
	Dir   string
	Files []string
}

func (e *MissingRequiredFilesError) Error() string {
	return fmt.Sprintf("missing required GTFS files in %s: %s", e.Dir, strings.Join(e.Files, ", "))
}

// ParseError reports a malformed row in a GTFS source file. A parse
// error is fatal to the whole load; no partial subset is inserted.
type ParseError struct {
	File string
	Row  int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.File, e.Row, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
