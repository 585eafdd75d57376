// Package server exposes the feed store's query outputs over HTTP for
// the map and poster front ends.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/lisaec/MappingYourTransit-hosted/internal/store"
)

// FeedRepository resolves a feed name to its store.
type FeedRepository interface {
	Get(ctx context.Context, name string) (*store.Store, error)
}

// Server routes feed queries to their stores.
type Server struct {
	repo FeedRepository
}

// New creates a server backed by repo.
func New(repo FeedRepository) *Server {
	return &Server{repo: repo}
}

// Router builds the chi router with CORS for the given origins.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.health)
	r.Route("/api/feeds/{name}", func(r chi.Router) {
		r.Get("/agency", s.getAgency)
		r.Get("/center", s.getCenter)
		r.Get("/stops", s.getStops)
		r.Get("/routes", s.getRoutes)
		r.Get("/geometries", s.getGeometries)
		r.Get("/departures", s.getDepartures)
		r.Get("/frequency", s.getFrequency)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
