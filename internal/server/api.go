package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ProfileList is the response of GET /profiles.
type ProfileList struct {
	Profiles []profiles.Profile `json:"profiles"`
}

// ConnectionList is the response of GET /connections.
type ConnectionList struct {
	Connections []conn.Entry `json:"connections"`
	Keepalive   string       `json:"keepalive"`
}

// QueryRequest is the body of POST /connections/{id}/query.
type QueryRequest struct {
	SQL string `json:"sql"`
}

// HealthResponse is the response of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Connections int    `json:"connections"`
	Profiles    int    `json:"profiles"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, msg string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: msg})
}

func profileID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProfileList{Profiles: s.store.List()})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(profileID(r))
	if err != nil {
		writeProfileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var in profiles.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}
	p, err := s.store.Create(in)
	if err != nil {
		writeProfileError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := profileID(r)
	var u profiles.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}
	// An open connection keeps the settings it was opened with.
	if s.manager.Status(conn.ResourceID(id)).Refs > 0 {
		tuilog.Log.Info("Profile updated while in use; changes apply on next open", "profile", id)
	}
	p, err := s.store.Update(id, u)
	if err != nil {
		writeProfileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := profileID(r)
	if e := s.manager.Status(conn.ResourceID(id)); e.Refs > 0 {
		writeError(w, http.StatusConflict, "in_use", "Profile has active connections; release them first")
		return
	}
	if err := s.store.Delete(id); err != nil {
		writeProfileError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeProfileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profiles.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, profiles.ErrInvalid):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		tuilog.Log.Error("Profile store error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConnectionList{
		Connections: s.manager.Snapshot(),
		Keepalive:   s.manager.Keepalive().String(),
	})
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Status(conn.ResourceID(profileID(r))))
}

// handleAcquire takes a reference on the profile's connection. The
// reference is held even when the open fails; clients must release it.
func (s *Server) handleAcquire(w http.ResponseWriter, r *http.Request) {
	id := profileID(r)
	if _, err := s.store.Get(id); err != nil {
		writeProfileError(w, err)
		return
	}

	_, err := s.manager.Acquire(r.Context(), conn.ResourceID(id))
	entry := s.manager.Status(conn.ResourceID(id))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, entry)
	case errors.Is(err, conn.ErrManagerClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting_down", err.Error())
	case errors.Is(err, conn.ErrOpenFailed):
		writeJSON(w, http.StatusBadGateway, entry)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, entry)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	id := conn.ResourceID(profileID(r))
	s.manager.Release(id)
	writeJSON(w, http.StatusOK, s.manager.Status(id))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := conn.ResourceID(profileID(r))
	if s.manager.Status(id).Refs < 1 {
		writeError(w, http.StatusConflict, "not_acquired", "Acquire the connection before querying it")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}
	if req.SQL == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "sql is required")
		return
	}

	start := time.Now()
	res, err := s.querier.Query(r.Context(), id, req.SQL)
	queryDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		queriesTotal.WithLabelValues("error").Inc()
		switch {
		case errors.Is(err, engine.ErrReadOnly):
			writeError(w, http.StatusForbidden, "read_only", err.Error())
		case errors.Is(err, engine.ErrNotOpen):
			writeError(w, http.StatusConflict, "not_connected", err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "timeout", err.Error())
		default:
			writeError(w, http.StatusBadRequest, "query_error", err.Error())
		}
		return
	}
	queriesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	id := conn.ResourceID(profileID(r))
	if !s.requireAcquired(w, id) {
		return
	}
	tables, err := s.querier.Tables(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if tables == nil {
		tables = []engine.Table{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	open := 0
	for _, e := range s.manager.Snapshot() {
		if e.Status == conn.StatusConnected {
			open++
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
		Connections: open,
		Profiles:    len(s.store.List()),
	})
}
