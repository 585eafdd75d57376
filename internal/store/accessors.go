package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Row types mirror the schema's nullable columns with pointer fields,
// so NULL in the store stays distinguishable from zero values.

type Agency struct {
	ID       *string `json:"agency_id"`
	Name     *string `json:"agency_name"`
	URL      *string `json:"agency_url"`
	Timezone *string `json:"agency_timezone"`
	Lang     *string `json:"agency_lang,omitempty"`
	Phone    *string `json:"agency_phone,omitempty"`
	FareURL  *string `json:"agency_fare_url,omitempty"`
	Email    *string `json:"agency_email,omitempty"`
}

type Stop struct {
	ID                 *string  `json:"stop_id"`
	ParentStation      *string  `json:"parent_station,omitempty"`
	Code               *string  `json:"stop_code,omitempty"`
	Name               *string  `json:"stop_name"`
	Desc               *string  `json:"stop_desc,omitempty"`
	Lat                *float64 `json:"stop_lat"`
	Lon                *float64 `json:"stop_lon"`
	ZoneID             *string  `json:"zone_id,omitempty"`
	URL                *string  `json:"stop_url,omitempty"`
	LocationType       *int64   `json:"location_type,omitempty"`
	WheelchairBoarding *int64   `json:"wheelchair_boarding,omitempty"`
	PlatformCode       *string  `json:"platform_code,omitempty"`
}

type Route struct {
	ID        *string `json:"route_id"`
	AgencyID  *string `json:"agency_id,omitempty"`
	ShortName *string `json:"route_short_name,omitempty"`
	LongName  *string `json:"route_long_name,omitempty"`
	Desc      *string `json:"route_desc,omitempty"`
	Type      *int64  `json:"route_type"`
	URL       *string `json:"route_url,omitempty"`
	Color     *string `json:"route_color,omitempty"`
	TextColor *string `json:"route_text_color,omitempty"`
	SortOrder *int64  `json:"route_sort_order,omitempty"`
}

type Trip struct {
	ID                   *string `json:"trip_id"`
	RouteID              *string `json:"route_id"`
	ServiceID            *string `json:"service_id"`
	Headsign             *string `json:"trip_headsign,omitempty"`
	ShortName            *string `json:"trip_short_name,omitempty"`
	DirectionID          *int64  `json:"direction_id,omitempty"`
	BlockID              *string `json:"block_id,omitempty"`
	ShapeID              *string `json:"shape_id,omitempty"`
	WheelchairAccessible *int64  `json:"wheelchair_accessible,omitempty"`
	BikesAllowed         *int64  `json:"bikes_allowed,omitempty"`
}

type StopTime struct {
	TripID            *string  `json:"trip_id"`
	ArrivalTime       *string  `json:"arrival_time"`
	DepartureTime     *string  `json:"departure_time"`
	StopID            *string  `json:"stop_id"`
	StopSequence      *int64   `json:"stop_sequence"`
	StopHeadsign      *string  `json:"stop_headsign,omitempty"`
	PickupType        *int64   `json:"pickup_type,omitempty"`
	DropOffType       *int64   `json:"drop_off_type,omitempty"`
	ShapeDistTraveled *float64 `json:"shape_dist_traveled,omitempty"`
	Timepoint         *int64   `json:"timepoint,omitempty"`
}

type ShapePoint struct {
	ShapeID      *string  `json:"shape_id"`
	Lat          *float64 `json:"shape_pt_lat"`
	Lon          *float64 `json:"shape_pt_lon"`
	Sequence     *int64   `json:"shape_pt_sequence"`
	DistTraveled *float64 `json:"shape_dist_traveled,omitempty"`
}

type CalendarEntry struct {
	ServiceID *string `json:"service_id"`
	Monday    *int64  `json:"monday"`
	Tuesday   *int64  `json:"tuesday"`
	Wednesday *int64  `json:"wednesday"`
	Thursday  *int64  `json:"thursday"`
	Friday    *int64  `json:"friday"`
	Saturday  *int64  `json:"saturday"`
	Sunday    *int64  `json:"sunday"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

type CalendarDate struct {
	ServiceID     *string `json:"service_id"`
	Date          *string `json:"date"`
	ExceptionType *int64  `json:"exception_type"`
}

type Transfer struct {
	FromStopID      *string `json:"from_stop_id"`
	ToStopID        *string `json:"to_stop_id"`
	FromRouteID     *string `json:"from_route_id,omitempty"`
	ToRouteID       *string `json:"to_route_id,omitempty"`
	FromTripID      *string `json:"from_trip_id,omitempty"`
	ToTripID        *string `json:"to_trip_id,omitempty"`
	TransferType    *int64  `json:"transfer_type,omitempty"`
	MinTransferTime *int64  `json:"min_transfer_time,omitempty"`
}

// MapStop is the spatial subset of a stop used for plotting: rows with
// coordinates and a plain stop or station location type.
type MapStop struct {
	ID           string  `json:"stop_id"`
	Name         *string `json:"stop_name"`
	Lat          float64 `json:"stop_lat"`
	Lon          float64 `json:"stop_lon"`
	LocationType *int64  `json:"location_type,omitempty"`
}

func (s *Store) Agencies(ctx context.Context) ([]Agency, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agency_id, agency_name, agency_url, agency_timezone,
		       agency_lang, agency_phone, agency_fare_url, agency_email
		FROM agency`)
	if err != nil {
		return nil, fmt.Errorf("failed to query agency: %w", err)
	}
	defer rows.Close()

	var agencies []Agency
	for rows.Next() {
		var a Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.URL, &a.Timezone, &a.Lang, &a.Phone, &a.FareURL, &a.Email); err != nil {
			return nil, fmt.Errorf("failed to scan agency row: %w", err)
		}
		agencies = append(agencies, a)
	}
	return agencies, rows.Err()
}

func (s *Store) Stops(ctx context.Context) ([]Stop, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stop_id, parent_station, stop_code, stop_name, stop_desc,
		       stop_lat, stop_lon, zone_id, stop_url, location_type,
		       wheelchair_boarding, platform_code
		FROM stops`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stops: %w", err)
	}
	defer rows.Close()

	var stops []Stop
	for rows.Next() {
		var st Stop
		if err := rows.Scan(&st.ID, &st.ParentStation, &st.Code, &st.Name, &st.Desc,
			&st.Lat, &st.Lon, &st.ZoneID, &st.URL, &st.LocationType,
			&st.WheelchairBoarding, &st.PlatformCode); err != nil {
			return nil, fmt.Errorf("failed to scan stop row: %w", err)
		}
		stops = append(stops, st)
	}
	return stops, rows.Err()
}

// MapStops returns the stops usable for plotting: non-null lat/lon and
// location_type null, 0 (stop) or 1 (station). Entrances, generic
// nodes and boarding areas are excluded.
func (s *Store) MapStops(ctx context.Context) ([]MapStop, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stop_id, stop_name, stop_lat, stop_lon, location_type
		FROM stops
		WHERE stop_id IS NOT NULL
		  AND stop_lat IS NOT NULL AND stop_lon IS NOT NULL
		  AND (location_type IS NULL OR location_type IN (0, 1))`)
	if err != nil {
		return nil, fmt.Errorf("failed to query map stops: %w", err)
	}
	defer rows.Close()

	var stops []MapStop
	for rows.Next() {
		var st MapStop
		if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lon, &st.LocationType); err != nil {
			return nil, fmt.Errorf("failed to scan map stop row: %w", err)
		}
		stops = append(stops, st)
	}
	return stops, rows.Err()
}

func (s *Store) Routes(ctx context.Context) ([]Route, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT route_id, agency_id, route_short_name, route_long_name,
		       route_desc, route_type, route_url, route_color,
		       route_text_color, route_sort_order
		FROM routes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		var r Route
		if err := rows.Scan(&r.ID, &r.AgencyID, &r.ShortName, &r.LongName, &r.Desc,
			&r.Type, &r.URL, &r.Color, &r.TextColor, &r.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan route row: %w", err)
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

func (s *Store) Trips(ctx context.Context) ([]Trip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trip_id, route_id, service_id, trip_headsign, trip_short_name,
		       direction_id, block_id, shape_id, wheelchair_accessible, bikes_allowed
		FROM trips`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []Trip
	for rows.Next() {
		var t Trip
		if err := rows.Scan(&t.ID, &t.RouteID, &t.ServiceID, &t.Headsign, &t.ShortName,
			&t.DirectionID, &t.BlockID, &t.ShapeID, &t.WheelchairAccessible, &t.BikesAllowed); err != nil {
			return nil, fmt.Errorf("failed to scan trip row: %w", err)
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (s *Store) StopTimes(ctx context.Context) ([]StopTime, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trip_id, arrival_time, departure_time, stop_id, stop_sequence,
		       stop_headsign, pickup_type, drop_off_type, shape_dist_traveled, timepoint
		FROM stop_times`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stop_times: %w", err)
	}
	defer rows.Close()

	var stopTimes []StopTime
	for rows.Next() {
		var st StopTime
		if err := rows.Scan(&st.TripID, &st.ArrivalTime, &st.DepartureTime, &st.StopID,
			&st.StopSequence, &st.StopHeadsign, &st.PickupType, &st.DropOffType,
			&st.ShapeDistTraveled, &st.Timepoint); err != nil {
			return nil, fmt.Errorf("failed to scan stop_time row: %w", err)
		}
		stopTimes = append(stopTimes, st)
	}
	return stopTimes, rows.Err()
}

func (s *Store) Shapes(ctx context.Context) ([]ShapePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT shape_id, shape_pt_lat, shape_pt_lon, shape_pt_sequence, shape_dist_traveled
		FROM shapes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shapes: %w", err)
	}
	defer rows.Close()

	var points []ShapePoint
	for rows.Next() {
		var p ShapePoint
		if err := rows.Scan(&p.ShapeID, &p.Lat, &p.Lon, &p.Sequence, &p.DistTraveled); err != nil {
			return nil, fmt.Errorf("failed to scan shape row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *Store) Calendar(ctx context.Context) ([]CalendarEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service_id, monday, tuesday, wednesday, thursday, friday,
		       saturday, sunday, start_date, end_date
		FROM calendar`)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}
	defer rows.Close()

	var entries []CalendarEntry
	for rows.Next() {
		var c CalendarEntry
		if err := rows.Scan(&c.ServiceID, &c.Monday, &c.Tuesday, &c.Wednesday, &c.Thursday,
			&c.Friday, &c.Saturday, &c.Sunday, &c.StartDate, &c.EndDate); err != nil {
			return nil, fmt.Errorf("failed to scan calendar row: %w", err)
		}
		entries = append(entries, c)
	}
	return entries, rows.Err()
}

func (s *Store) CalendarDates(ctx context.Context) ([]CalendarDate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service_id, date, exception_type FROM calendar_dates`)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar_dates: %w", err)
	}
	defer rows.Close()

	var dates []CalendarDate
	for rows.Next() {
		var d CalendarDate
		if err := rows.Scan(&d.ServiceID, &d.Date, &d.ExceptionType); err != nil {
			return nil, fmt.Errorf("failed to scan calendar_date row: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *Store) Transfers(ctx context.Context) ([]Transfer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_stop_id, to_stop_id, from_route_id, to_route_id,
		       from_trip_id, to_trip_id, transfer_type, min_transfer_time
		FROM transfers`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(&t.FromStopID, &t.ToStopID, &t.FromRouteID, &t.ToRouteID,
			&t.FromTripID, &t.ToTripID, &t.TransferType, &t.MinTransferTime); err != nil {
			return nil, fmt.Errorf("failed to scan transfer row: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// CenterPoint returns the arithmetic mean of all shape points,
// suitable for centering a map on the network. An empty shapes table
// yields ErrEmptyFeed rather than a NaN center.
func (s *Store) CenterPoint(ctx context.Context) (lat, lon float64, err error) {
	var avgLat, avgLon sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		"SELECT AVG(shape_pt_lat), AVG(shape_pt_lon) FROM shapes",
	).Scan(&avgLat, &avgLon)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute center point: %w", err)
	}
	if !avgLat.Valid || !avgLon.Valid {
		return 0, 0, ErrEmptyFeed
	}
	return avgLat.Float64, avgLon.Float64, nil
}

// AgencyName returns the first agency row's name.
func (s *Store) AgencyName(ctx context.Context) (string, error) {
	return s.agencyField(ctx, "agency_name")
}

// AgencyURL returns the first agency row's url.
func (s *Store) AgencyURL(ctx context.Context) (string, error) {
	return s.agencyField(ctx, "agency_url")
}

func (s *Store) agencyField(ctx context.Context, column string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM agency LIMIT 1", column),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrEmptyAgencyTable
	}
	if err != nil {
		return "", fmt.Errorf("failed to query agency %s: %w", column, err)
	}
	return value.String, nil
}
