package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lisaec/MappingYourTransit-hosted/internal/gtfs"
	"github.com/lisaec/MappingYourTransit-hosted/internal/store"
)

// ErrorResponse is the JSON error payload.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// feedStore resolves the {name} URL parameter to a store, writing the
// error response itself when resolution fails.
func (s *Server) feedStore(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "feed name is required"})
		return nil, false
	}
	st, err := s.repo.Get(r.Context(), name)
	if err != nil {
		var missing *gtfs.MissingRequiredFilesError
		switch {
		case errors.As(err, &missing):
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:   "Feed is missing required files",
				Details: map[string]any{"missing": missing.Files},
			})
		case errors.Is(err, context.Canceled):
			// client went away mid-build
		default:
			writeJSON(w, http.StatusNotFound, ErrorResponse{
				Error:   "Feed not available",
				Details: map[string]any{"feed": name, "internal": err.Error()},
			})
		}
		return nil, false
	}
	return st, true
}

type AgencyResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s *Server) getAgency(w http.ResponseWriter, r *http.Request) {
	st, ok := s.feedStore(w, r)
	if !ok {
		return
	}
	name, err := st.AgencyName(r.Context())
	if err == nil {
		var url string
		url, err = st.AgencyURL(r.Context())
		if err == nil {
			writeJSON(w, http.StatusOK, AgencyResponse{Name: name, URL: url})
			return
		}
	}
	if errors.Is(err, store.ErrEmptyAgencyTable) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Feed has no agency"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: "Failed to read agency", Details: map[string]any{"internal": err.Error()},
	})
}

type CenterResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (s *Server) getCenter(w http.ResponseWriter, r *http.Request) {
	st, ok := s.feedStore(w, r)
	if !ok {
		return
	}
	lat, lon, err := st.CenterPoint(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrEmptyFeed) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Feed has no shape points"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to compute center", Details: map[string]any{"internal": err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, CenterResponse{Lat: lat, Lon: lon})
}

func (s *Server) getStops(w http.ResponseWriter, r *http.Request) {
	st, ok := s.feedStore(w, r)
	if !ok {
		return
	}
	stops, err := st.MapStops(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to read stops", Details: map[string]any{"internal": err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stops": stops, "count": len(stops)})
}

func (s *Server) getRoutes(w http.ResponseWriter, r *http.Request) {
	st, ok := s.feedStore(w, r)
	if !ok {
		return
	}
	routes, err := st.Routes(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to read routes", Details: map[string]any{"internal": err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": routes, "count": len(routes)})
}

func (s *Server) getGeometries(w http.ResponseWriter, r *http.Request) {
	st, ok := s.feedStore(w, r)
	if !ok {
		return
	}
	geometries, err := st.RouteShapeGeometries(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to build geometries", Details: map[string]any{"internal": err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"geometries": geometries, "count": len(geometries)})
}

func (s *Server) getDepartures(w http.ResponseWriter, r *http.Request) {
	st, ok := s.feedStore(w, r)
	if !ok {
		return
	}
	summaries, err := st.DepartureSummaries(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to summarize departures", Details: map[string]any{"internal": err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"departures": summaries, "count": len(summaries)})
}

func (s *Server) getFrequency(w http.ResponseWriter, r *http.Request) {
	st, ok := s.feedStore(w, r)
	if !ok {
		return
	}
	matrix, err := st.RouteHourlyFrequency(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to compute route frequency", Details: map[string]any{"internal": err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, matrix)
}
