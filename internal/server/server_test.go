package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisaec/MappingYourTransit-hosted/internal/store"
)

func writeFeedFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeTestFeed(t *testing.T, dir string) {
	t.Helper()
	writeFeedFile(t, dir, "agency.txt",
		"agency_id,agency_name,agency_url,agency_timezone\n"+
			"A1,Metro Transit,https://metro.example,America/New_York\n")
	writeFeedFile(t, dir, "stops.txt",
		"stop_id,stop_name,stop_lat,stop_lon,location_type\n"+
			"S1,First & Main,40.1,-75.1,0\n")
	writeFeedFile(t, dir, "routes.txt",
		"route_id,route_short_name,route_type,route_color\n"+
			"R1,1,3,1A2B3C\n")
	writeFeedFile(t, dir, "trips.txt",
		"trip_id,route_id,service_id,shape_id\n"+
			"T1,R1,WK,SH1\n")
	writeFeedFile(t, dir, "shapes.txt",
		"shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n"+
			"SH1,10.0,20.0,1\n"+
			"SH1,12.0,24.0,2\n")
	writeFeedFile(t, dir, "stop_times.txt",
		"trip_id,arrival_time,departure_time,stop_id,stop_sequence\n"+
			"T1,08:00:00,08:00:00,S1,1\n")
}

// newTestServer stands up the router over a feeds directory holding the
// single "metro" feed plus an empty "broken" directory.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	root := t.TempDir()
	feedDir := filepath.Join(root, "feeds", "metro")
	require.NoError(t, os.MkdirAll(feedDir, 0o755))
	writeTestFeed(t, feedDir)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "feeds", "broken"), 0o755))

	manager := store.NewManager(filepath.Join(root, "feeds"), filepath.Join(root, "databases"))
	t.Cleanup(func() { manager.Close() })

	return New(manager).Router([]string{"*"})
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(into))
}

func TestHealth(t *testing.T) {
	handler := newTestServer(t)
	rec := get(t, handler, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestGetAgency(t *testing.T) {
	handler := newTestServer(t)
	rec := get(t, handler, "/api/feeds/metro/agency")
	require.Equal(t, http.StatusOK, rec.Code)

	var body AgencyResponse
	decode(t, rec, &body)
	assert.Equal(t, "Metro Transit", body.Name)
	assert.Equal(t, "https://metro.example", body.URL)
}

func TestGetCenter(t *testing.T) {
	handler := newTestServer(t)
	rec := get(t, handler, "/api/feeds/metro/center")
	require.Equal(t, http.StatusOK, rec.Code)

	var body CenterResponse
	decode(t, rec, &body)
	assert.InDelta(t, 11.0, body.Lat, 1e-9)
	assert.InDelta(t, 22.0, body.Lon, 1e-9)
}

func TestGetStops(t *testing.T) {
	handler := newTestServer(t)
	rec := get(t, handler, "/api/feeds/metro/stops")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stops []store.MapStop `json:"stops"`
		Count int             `json:"count"`
	}
	decode(t, rec, &body)
	require.Equal(t, 1, body.Count)
	require.Len(t, body.Stops, 1)
	assert.Equal(t, "S1", body.Stops[0].ID)
}

func TestGetRoutes(t *testing.T) {
	handler := newTestServer(t)
	rec := get(t, handler, "/api/feeds/metro/routes")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Routes []store.Route `json:"routes"`
		Count  int           `json:"count"`
	}
	decode(t, rec, &body)
	require.Equal(t, 1, body.Count)
	require.NotNil(t, body.Routes[0].ID)
	assert.Equal(t, "R1", *body.Routes[0].ID)
}

func TestGetGeometries(t *testing.T) {
	handler := newTestServer(t)
	rec := get(t, handler, "/api/feeds/metro/geometries")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Geometries []store.RouteGeometry `json:"geometries"`
		Count      int                   `json:"count"`
	}
	decode(t, rec, &body)
	require.Equal(t, 1, body.Count)
	geo := body.Geometries[0]
	assert.Equal(t, "T1", geo.TripID)
	require.Len(t, geo.Line, 2)
	assert.Equal(t, store.Point{Lat: 10.0, Lon: 20.0}, geo.Line[0])
}

func TestGetDepartures(t *testing.T) {
	handler := newTestServer(t)
	rec := get(t, handler, "/api/feeds/metro/departures")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Departures map[string]string `json:"departures"`
		Count      int               `json:"count"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "1 daily departures: Infrequent from 8:00 to 8:00", body.Departures["S1"])
}

func TestGetFrequency(t *testing.T) {
	handler := newTestServer(t)
	rec := get(t, handler, "/api/feeds/metro/frequency")
	require.Equal(t, http.StatusOK, rec.Code)

	var body store.FrequencyMatrix
	decode(t, rec, &body)
	assert.Equal(t, []string{"R1"}, body.RouteIDs)
	assert.Equal(t, 1, body.Count("R1", 8))
}

func TestUnknownFeedIsNotFound(t *testing.T) {
	handler := newTestServer(t)
	rec := get(t, handler, "/api/feeds/nope/stops")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "Feed not available", body.Error)
}

func TestIncompleteFeedIsUnprocessable(t *testing.T) {
	handler := newTestServer(t)
	rec := get(t, handler, "/api/feeds/broken/stops")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "Feed is missing required files", body.Error)
	missing, ok := body.Details["missing"].([]any)
	require.True(t, ok)
	assert.Len(t, missing, 6)
}
