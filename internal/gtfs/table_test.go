package gtfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadTableFiltersAndConverts(t *testing.T) {
	dir := t.TempDir()
	// my_custom_rating is an extension column and must be dropped;
	// empty cells become explicit nulls.
	writeFile(t, dir, "stops.txt",
		"stop_id,stop_name,stop_lat,stop_lon,location_type,my_custom_rating\n"+
			"S1,First & Main,40.5,-75.25,0,good\n"+
			"S2,Second & Oak,,,,bad\n")

	def, _ := TableByName("stops")
	table, err := ReadTable(dir, def)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	wantColumns := []string{"stop_id", "stop_name", "stop_lat", "stop_lon", "location_type"}
	if diff := cmp.Diff(wantColumns, table.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	wantRows := [][]any{
		{"S1", "First & Main", 40.5, -75.25, int64(0)},
		{"S2", "Second & Oak", nil, nil, nil},
	}
	if diff := cmp.Diff(wantRows, table.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTableBOM(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "agency.txt",
		"\xef\xbb\xbfagency_id,agency_name\nA1,Metro\n")

	def, _ := TableByName("agency")
	table, err := ReadTable(dir, def)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(table.Columns) == 0 || table.Columns[0] != "agency_id" {
		t.Errorf("BOM not stripped from header, columns = %v", table.Columns)
	}
}

func TestReadTableMissingOptionalFile(t *testing.T) {
	def, _ := TableByName("calendar")
	table, err := ReadTable(t.TempDir(), def)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if table != nil {
		t.Errorf("missing optional file should yield nil table, got %+v", table)
	}
}

func TestReadTableBadNumeric(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shapes.txt",
		"shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n"+
			"SH1,10.0,20.0,1\n"+
			"SH1,not-a-number,21.0,2\n")

	def, _ := TableByName("shapes")
	_, err := ReadTable(dir, def)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("want ParseError, got %v", err)
	}
	if parseErr.File != "shapes.txt" || parseErr.Row != 3 {
		t.Errorf("ParseError location = %s row %d, want shapes.txt row 3", parseErr.File, parseErr.Row)
	}
}

func TestReadTableRaggedRow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "routes.txt",
		"route_id,route_color\nR1,FF0000\nR2,00FF00,extra-cell\n")

	def, _ := TableByName("routes")
	_, err := ReadTable(dir, def)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("want ParseError for ragged row, got %v", err)
	}
}
