// Package server exposes the memory engine over a local HTTP API. It is a
// thin collaborator: every handler goes through the engine's public surface.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/memteam/memoryman/internal/engine"
	"github.com/memteam/memoryman/internal/storage"
)

// Server is the memoryman HTTP API server.
type Server struct {
	eng     *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server around an engine.
func New(eng *engine.Engine, version string) *Server {
	s := &Server{
		eng:     eng,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/memories", s.handleAdd)
		r.Get("/memories/{id}", s.handleGet)
		r.Delete("/memories/{id}", s.handleDelete)
		r.Post("/memories/{id}/archive", s.handleArchive)

		r.Get("/entities/{key}", s.handleGetEntity)

		r.Get("/query", s.handleQuery)
		r.Get("/recent", s.handleRecent)
		r.Post("/clear", s.handleClear)
		r.Get("/stats", s.handleStats)
	})

	s.router = r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidType):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrCapacity):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
