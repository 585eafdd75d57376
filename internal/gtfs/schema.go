package gtfs

import (
	"fmt"
	"strings"
)

// ColumnType is the SQLite storage type a GTFS column is converted to
// at ingestion.
type ColumnType int

const (
	Text ColumnType = iota
	Integer
	Real
)

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	default:
		return "TEXT"
	}
}

// ForeignKey names the parent table and column a column references.
type ForeignKey struct {
	Table  string
	Column string
}

// ColumnDef declares one permitted column of a GTFS table.
type ColumnDef struct {
	Name string
	Type ColumnType
	Ref  *ForeignKey
}

// TableDef is the static allow-list for one GTFS table: the exact set
// of columns that may be inserted, plus key metadata. Columns present
// in a source file but not declared here are dropped before insertion,
// because real-world feeds routinely carry extension columns.
type TableDef struct {
	Name       string
	File       string
	Required   bool
	PrimaryKey string // empty for append-only fact tables
	Columns    []ColumnDef
}

// Column returns the definition for name, if declared.
func (t TableDef) Column(name string) (ColumnDef, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// CreateSQL renders the CREATE TABLE statement for the table.
// Foreign keys are declared for documentation and tooling; the store
// opens the database without enforcement because optional parent
// tables (calendar) and shape ids without a unique parent column make
// strict enforcement reject otherwise loadable feeds.
func (t TableDef) CreateSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "    %s %s", c.Name, c.Type)
		if c.Name == t.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}
	}
	for _, c := range t.Columns {
		if c.Ref != nil {
			fmt.Fprintf(&b, ",\n    FOREIGN KEY (%s) REFERENCES %s (%s)", c.Name, c.Ref.Table, c.Ref.Column)
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// Tables lists every GTFS table of interest in foreign-key dependency
// order: parents before children, so this order doubles as the
// insertion order during a load.
var Tables = []TableDef{
	{
		Name:       "agency",
		File:       "agency.txt",
		Required:   true,
		PrimaryKey: "agency_id",
		Columns: []ColumnDef{
			{Name: "agency_id", Type: Text},
			{Name: "agency_name", Type: Text},
			{Name: "agency_url", Type: Text},
			{Name: "agency_timezone", Type: Text},
			{Name: "agency_lang", Type: Text},
			{Name: "agency_phone", Type: Text},
			{Name: "agency_fare_url", Type: Text},
			{Name: "agency_email", Type: Text},
		},
	},
	{
		Name:       "stops",
		File:       "stops.txt",
		Required:   true,
		PrimaryKey: "stop_id",
		Columns: []ColumnDef{
			{Name: "stop_id", Type: Text},
			{Name: "parent_station", Type: Text, Ref: &ForeignKey{Table: "stops", Column: "stop_id"}},
			{Name: "stop_code", Type: Text},
			{Name: "stop_name", Type: Text},
			{Name: "tts_stop_name", Type: Text},
			{Name: "stop_desc", Type: Text},
			{Name: "stop_lat", Type: Real},
			{Name: "stop_lon", Type: Real},
			{Name: "zone_id", Type: Text},
			{Name: "stop_url", Type: Text},
			{Name: "location_type", Type: Integer},
			{Name: "wheelchair_boarding", Type: Integer},
			{Name: "level_id", Type: Text},
			{Name: "platform_code", Type: Text},
		},
	},
	{
		Name:     "shapes",
		File:     "shapes.txt",
		Required: true,
		Columns: []ColumnDef{
			{Name: "shape_id", Type: Text},
			{Name: "shape_pt_lat", Type: Real},
			{Name: "shape_pt_lon", Type: Real},
			{Name: "shape_pt_sequence", Type: Integer},
			{Name: "shape_dist_traveled", Type: Real},
		},
	},
	{
		Name:       "routes",
		File:       "routes.txt",
		Required:   true,
		PrimaryKey: "route_id",
		Columns: []ColumnDef{
			{Name: "route_id", Type: Text},
			{Name: "agency_id", Type: Text, Ref: &ForeignKey{Table: "agency", Column: "agency_id"}},
			{Name: "route_short_name", Type: Text},
			{Name: "route_long_name", Type: Text},
			{Name: "route_desc", Type: Text},
			{Name: "route_type", Type: Integer},
			{Name: "route_url", Type: Text},
			{Name: "route_color", Type: Text},
			{Name: "route_text_color", Type: Text},
			{Name: "route_sort_order", Type: Integer},
			{Name: "continuous_pickup", Type: Integer},
			{Name: "continuous_drop_off", Type: Integer},
		},
	},
	{
		Name:       "calendar",
		File:       "calendar.txt",
		PrimaryKey: "service_id",
		Columns: []ColumnDef{
			{Name: "service_id", Type: Text},
			{Name: "monday", Type: Integer},
			{Name: "tuesday", Type: Integer},
			{Name: "wednesday", Type: Integer},
			{Name: "thursday", Type: Integer},
			{Name: "friday", Type: Integer},
			{Name: "saturday", Type: Integer},
			{Name: "sunday", Type: Integer},
			{Name: "start_date", Type: Text},
			{Name: "end_date", Type: Text},
		},
	},
	{
		Name:       "trips",
		File:       "trips.txt",
		Required:   true,
		PrimaryKey: "trip_id",
		Columns: []ColumnDef{
			{Name: "trip_id", Type: Text},
			{Name: "route_id", Type: Text, Ref: &ForeignKey{Table: "routes", Column: "route_id"}},
			{Name: "service_id", Type: Text},
			{Name: "trip_headsign", Type: Text},
			{Name: "trip_short_name", Type: Text},
			{Name: "direction_id", Type: Integer},
			{Name: "block_id", Type: Text},
			{Name: "shape_id", Type: Text},
			{Name: "wheelchair_accessible", Type: Integer},
			{Name: "bikes_allowed", Type: Integer},
		},
	},
	{
		Name:     "stop_times",
		File:     "stop_times.txt",
		Required: true,
		Columns: []ColumnDef{
			{Name: "trip_id", Type: Text, Ref: &ForeignKey{Table: "trips", Column: "trip_id"}},
			{Name: "arrival_time", Type: Text},
			{Name: "departure_time", Type: Text},
			{Name: "stop_id", Type: Text, Ref: &ForeignKey{Table: "stops", Column: "stop_id"}},
			{Name: "stop_sequence", Type: Integer},
			{Name: "stop_headsign", Type: Text},
			{Name: "pickup_type", Type: Integer},
			{Name: "drop_off_type", Type: Integer},
			{Name: "continuous_pickup", Type: Integer},
			{Name: "continuous_drop_off", Type: Integer},
			{Name: "shape_dist_traveled", Type: Real},
			{Name: "timepoint", Type: Integer},
		},
	},
	{
		Name: "calendar_dates",
		File: "calendar_dates.txt",
		Columns: []ColumnDef{
			{Name: "service_id", Type: Text},
			{Name: "date", Type: Text},
			{Name: "exception_type", Type: Integer},
		},
	},
	{
		Name: "transfers",
		File: "transfers.txt",
		Columns: []ColumnDef{
			{Name: "from_stop_id", Type: Text, Ref: &ForeignKey{Table: "stops", Column: "stop_id"}},
			{Name: "to_stop_id", Type: Text, Ref: &ForeignKey{Table: "stops", Column: "stop_id"}},
			{Name: "from_route_id", Type: Text, Ref: &ForeignKey{Table: "routes", Column: "route_id"}},
			{Name: "to_route_id", Type: Text, Ref: &ForeignKey{Table: "routes", Column: "route_id"}},
			{Name: "from_trip_id", Type: Text, Ref: &ForeignKey{Table: "trips", Column: "trip_id"}},
			{Name: "to_trip_id", Type: Text, Ref: &ForeignKey{Table: "trips", Column: "trip_id"}},
			{Name: "transfer_type", Type: Integer},
			{Name: "min_transfer_time", Type: Integer},
		},
	},
}

// TableByName looks up a table definition by its SQL name.
func TableByName(name string) (TableDef, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableDef{}, false
}

// RequiredFiles returns the file names a feed directory must contain.
func RequiredFiles() []string {
	var files []string
	for _, t := range Tables {
		if t.Required {
			files = append(files, t.File)
		}
	}
	return files
}
