package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// hourlyWindowStart/End bound the hour-of-day window the frequency
// matrix covers, inclusive.
const (
	hourlyWindowStart = 8
	hourlyWindowEnd   = 20
)

// DepartureSummaries returns a human readable departure summary per
// stop id, e.g. "3 daily departures: Every 10 minutes from 8:00 to
// 8:20". Departure times are elapsed durations, so hour values of 24
// and above (post-midnight service) are kept as-is and never wrapped
// onto a 24-hour clock.
func (s *Store) DepartureSummaries(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(stop_id AS TEXT), departure_time
		FROM stop_times
		WHERE stop_id IS NOT NULL AND departure_time IS NOT NULL
		ORDER BY stop_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query departures: %w", err)
	}
	defer rows.Close()

	summaries := map[string]string{}
	var currentStop string
	var departures []int

	flush := func() {
		if currentStop != "" {
			summaries[currentStop] = summarizeDepartures(departures)
		}
		departures = departures[:0]
	}

	for rows.Next() {
		var stopID, departure string
		if err := rows.Scan(&stopID, &departure); err != nil {
			return nil, fmt.Errorf("failed to scan departure row: %w", err)
		}
		seconds, err := ParseGTFSTime(departure)
		if err != nil {
			return nil, fmt.Errorf("stop %s: %w", stopID, err)
		}
		if stopID != currentStop {
			flush()
			currentStop = stopID
		}
		departures = append(departures, seconds)
	}
	flush()
	return summaries, rows.Err()
}

func summarizeDepartures(departures []int) string {
	sort.Ints(departures)

	freq := "Infrequent"
	if len(departures) >= 2 {
		total := 0
		for i := 1; i < len(departures); i++ {
			total += departures[i] - departures[i-1]
		}
		mean := total / (len(departures) - 1)
		freq = fmt.Sprintf("Every %d minutes", mean/60)
	}

	first := formatClock(departures[0])
	last := formatClock(departures[len(departures)-1])
	return fmt.Sprintf("%d daily departures: %s from %s to %s", len(departures), freq, first, last)
}

// ParseGTFSTime converts an HH:MM:SS (or HH:MM) text value into
// elapsed seconds since midnight. Hours above 23 are legal.
func ParseGTFSTime(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid GTFS time %q", value)
	}
	var fields [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid GTFS time %q", value)
		}
		fields[i] = n
	}
	return fields[0]*3600 + fields[1]*60 + fields[2], nil
}

// formatClock renders elapsed seconds as H:MM with no leading zero on
// the hour and no seconds component.
func formatClock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/3600, (seconds%3600)/60)
}

// FrequencyMatrix is the route-by-hour trip count for the busiest
// routes. Rows are ordered by route id; every hour of the window is
// present with zero-filled cells where no trips were observed.
type FrequencyMatrix struct {
	Hours    []int    `json:"hours"`
	RouteIDs []string `json:"route_ids"`
	Counts   [][]int  `json:"counts"`
}

// Count returns the trip count for routeID at hour, or zero when the
// route is not part of the matrix.
func (m *FrequencyMatrix) Count(routeID string, hour int) int {
	for i, id := range m.RouteIDs {
		if id != routeID {
			continue
		}
		for j, h := range m.Hours {
			if h == hour {
				return m.Counts[i][j]
			}
		}
	}
	return 0
}

// RouteHourlyFrequency counts scheduled arrivals per route and hour of
// day between 08:00 and 20:59, restricted to the ten routes with the
// highest total count in that window. The arrival hour is taken from
// the first two characters of the arrival time, so values above 23 are
// tolerated (and fall outside the window).
func (s *Store) RouteHourlyFrequency(ctx context.Context) (*FrequencyMatrix, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(trips.route_id AS TEXT),
		       CAST(SUBSTR(stop_times.arrival_time, 1, 2) AS INTEGER) AS hour,
		       COUNT(*) AS trip_count
		FROM stop_times
		JOIN trips ON stop_times.trip_id = trips.trip_id
		WHERE stop_times.arrival_time IS NOT NULL
		  AND CAST(SUBSTR(stop_times.arrival_time, 1, 2) AS INTEGER) BETWEEN ? AND ?
		  AND trips.route_id IN (
		      SELECT trips.route_id
		      FROM stop_times
		      JOIN trips ON stop_times.trip_id = trips.trip_id
		      WHERE stop_times.arrival_time IS NOT NULL
		        AND CAST(SUBSTR(stop_times.arrival_time, 1, 2) AS INTEGER) BETWEEN ? AND ?
		      GROUP BY trips.route_id
		      ORDER BY COUNT(*) DESC
		      LIMIT 10
		  )
		GROUP BY trips.route_id, hour
		ORDER BY trips.route_id, hour`,
		hourlyWindowStart, hourlyWindowEnd, hourlyWindowStart, hourlyWindowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query route frequency: %w", err)
	}
	defer rows.Close()

	counts := map[string]map[int]int{}
	for rows.Next() {
		var routeID string
		var hour, count int
		if err := rows.Scan(&routeID, &hour, &count); err != nil {
			return nil, fmt.Errorf("failed to scan route frequency row: %w", err)
		}
		if counts[routeID] == nil {
			counts[routeID] = map[int]int{}
		}
		counts[routeID][hour] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	matrix := &FrequencyMatrix{}
	for h := hourlyWindowStart; h <= hourlyWindowEnd; h++ {
		matrix.Hours = append(matrix.Hours, h)
	}
	for routeID := range counts {
		matrix.RouteIDs = append(matrix.RouteIDs, routeID)
	}
	sort.Strings(matrix.RouteIDs)
	for _, routeID := range matrix.RouteIDs {
		row := make([]int, len(matrix.Hours))
		for j, h := range matrix.Hours {
			row[j] = counts[routeID][h]
		}
		matrix.Counts = append(matrix.Counts, row)
	}
	return matrix, nil
}
