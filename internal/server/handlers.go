package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/memteam/memoryman/internal/engine"
	"github.com/memteam/memoryman/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

type addRequest struct {
	Type     string         `json:"memory_type"`
	Key      string         `json:"key,omitempty"`
	Content  string         `json:"content"`
	Metadata model.Metadata `json:"metadata,omitempty"`
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	rec, err := s.eng.Add(r.Context(), engine.AddParams{
		Type:     model.Type(req.Type),
		Key:      req.Key,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.eng.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	rec, err := s.eng.GetEntity(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.eng.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.eng.Archive(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id, "archived": true})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var types []model.Type
	if raw := q.Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			types = append(types, model.Type(strings.TrimSpace(t)))
		}
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	archived := q.Get("archived") == "true"

	results, err := s.eng.Query(r.Context(), engine.QueryParams{
		Text:            q.Get("q"),
		Types:           types,
		Limit:           limit,
		IncludeArchived: archived,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []engine.QueryResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	recs, err := s.eng.Recent(r.Context(), model.Type(q.Get("type")), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []model.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	t := model.Type(r.URL.Query().Get("type"))
	if err := s.eng.Clear(r.Context(), t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.eng.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
