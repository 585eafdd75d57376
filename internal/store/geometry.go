package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Point is one geographic coordinate of a shape line.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Line is the ordered path a vehicle follows, built from a shape's
// points in sequence order.
type Line []Point

// RouteGeometry is one plottable route path: trip and route metadata
// with the resolved line attached and the effective display color.
type RouteGeometry struct {
	TripID         string  `json:"trip_id"`
	TripHeadsign   *string `json:"trip_headsign,omitempty"`
	DirectionID    *int64  `json:"direction_id,omitempty"`
	ShapeID        string  `json:"shape_id"`
	RouteID        string  `json:"route_id"`
	RouteShortName *string `json:"route_short_name,omitempty"`
	RouteLongName  *string `json:"route_long_name,omitempty"`
	RouteColor     string  `json:"route_color"`
	Line           Line    `json:"line"`
}

// RouteShapeGeometries joins trips to routes and shapes and returns
// one row per geometrically distinct path. Trips without a shape id
// and routes without a color are excluded; a pure white route color is
// remapped to black because it would vanish against the light map
// background. Two lines whose point sequences are identical up to
// reversal count as the same path, and the row with the lowest trip id
// wins among duplicates.
func (s *Store) RouteShapeGeometries(ctx context.Context) ([]RouteGeometry, error) {
	lines, err := s.shapeLines(ctx)
	if err != nil {
		return nil, err
	}

	// Shape ids are compared as text on both sides of the join; the
	// canonical identifier type for all cross-table keys is string.
	rows, err := s.db.QueryContext(ctx, `
		SELECT trips.trip_id, trips.trip_headsign, trips.direction_id,
		       CAST(trips.shape_id AS TEXT),
		       routes.route_id, routes.route_short_name, routes.route_long_name,
		       CASE
		           WHEN LOWER(routes.route_color) = 'ffffff' THEN '000000'
		           ELSE routes.route_color
		       END AS route_color
		FROM trips
		JOIN routes ON trips.route_id = routes.route_id
		WHERE trips.shape_id IS NOT NULL
		  AND routes.route_color IS NOT NULL
		ORDER BY trips.trip_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip routes: %w", err)
	}
	defer rows.Close()

	seen := map[string]bool{}
	var geometries []RouteGeometry
	for rows.Next() {
		var g RouteGeometry
		if err := rows.Scan(&g.TripID, &g.TripHeadsign, &g.DirectionID, &g.ShapeID,
			&g.RouteID, &g.RouteShortName, &g.RouteLongName, &g.RouteColor); err != nil {
			return nil, fmt.Errorf("failed to scan trip route row: %w", err)
		}
		line, ok := lines[g.ShapeID]
		if !ok {
			// The trip references a shape id with no points; there is
			// nothing to plot for it.
			continue
		}
		key := canonicalLineKey(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		g.Line = line
		geometries = append(geometries, g)
	}
	return geometries, rows.Err()
}

// shapeLines reads every shape's points in sequence order and groups
// them into lines keyed by shape id.
func (s *Store) shapeLines(ctx context.Context) (map[string]Line, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(shape_id AS TEXT), shape_pt_lat, shape_pt_lon
		FROM shapes
		WHERE shape_id IS NOT NULL
		  AND shape_pt_lat IS NOT NULL AND shape_pt_lon IS NOT NULL
		ORDER BY shape_id, shape_pt_sequence`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shape points: %w", err)
	}
	defer rows.Close()

	lines := map[string]Line{}
	for rows.Next() {
		var shapeID string
		var p Point
		if err := rows.Scan(&shapeID, &p.Lat, &p.Lon); err != nil {
			return nil, fmt.Errorf("failed to scan shape point: %w", err)
		}
		lines[shapeID] = append(lines[shapeID], p)
	}
	return lines, rows.Err()
}

// canonicalLineKey renders the line in its canonical orientation: if
// the first point exceeds the last (latitude, then longitude), the
// traversal is reversed, so a path and its reverse produce the same
// key.
func canonicalLineKey(line Line) string {
	reversed := false
	if len(line) > 1 {
		first, last := line[0], line[len(line)-1]
		if first.Lat > last.Lat || (first.Lat == last.Lat && first.Lon > last.Lon) {
			reversed = true
		}
	}
	var b strings.Builder
	for i := range line {
		p := line[i]
		if reversed {
			p = line[len(line)-1-i]
		}
		b.WriteString(strconv.FormatFloat(p.Lat, 'g', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Lon, 'g', -1, 64))
		b.WriteByte(';')
	}
	return b.String()
}
