package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
)

// ExportRequest is the body of POST /connections/{id}/export. An empty
// format is taken from the path's extension.
type ExportRequest struct {
	SQL  string `json:"sql"`
	Path string `json:"path"`
	engine.ExportOptions
}

// ExportResponse reports a finished export.
type ExportResponse struct {
	Path   string              `json:"path"`
	Format engine.ExportFormat `json:"format"`
	Rows   int64               `json:"rows"`
}

// requireAcquired writes 409 and returns false unless the caller holds a
// reference on id.
func (s *Server) requireAcquired(w http.ResponseWriter, id conn.ResourceID) bool {
	if s.manager.Status(id).Refs < 1 {
		writeError(w, http.StatusConflict, "not_acquired", "Acquire the connection first")
		return false
	}
	return true
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotOpen):
		writeError(w, http.StatusConflict, "not_connected", err.Error())
	case errors.Is(err, engine.ErrInvalidExtension), errors.Is(err, engine.ErrNotExportable):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	id := conn.ResourceID(profileID(r))
	if !s.requireAcquired(w, id) {
		return
	}
	schemas, err := s.querier.Schemas(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if schemas == nil {
		schemas = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": schemas})
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	id := conn.ResourceID(profileID(r))
	if !s.requireAcquired(w, id) {
		return
	}
	cols, err := s.querier.Columns(r.Context(), id, chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if cols == nil {
		cols = []engine.ColumnInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": cols})
}

func (s *Server) handleConstraints(w http.ResponseWriter, r *http.Request) {
	id := conn.ResourceID(profileID(r))
	if !s.requireAcquired(w, id) {
		return
	}
	cons, err := s.querier.Constraints(r.Context(), id, chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if cons == nil {
		cons = []engine.Constraint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"constraints": cons})
}

func (s *Server) handleExtensions(w http.ResponseWriter, r *http.Request) {
	id := conn.ResourceID(profileID(r))
	if !s.requireAcquired(w, id) {
		return
	}
	exts, err := s.querier.Extensions(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if exts == nil {
		exts = []engine.Extension{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"extensions": exts})
}

func (s *Server) handleInstallExtension(w http.ResponseWriter, r *http.Request) {
	id := conn.ResourceID(profileID(r))
	if !s.requireAcquired(w, id) {
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.querier.Install(r.Context(), id, name); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"installed": name})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := conn.ResourceID(profileID(r))
	if !s.requireAcquired(w, id) {
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}
	if req.SQL == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "sql is required")
		return
	}
	if !filepath.IsAbs(req.Path) {
		writeError(w, http.StatusBadRequest, "validation_error", "path must be absolute")
		return
	}
	if req.Format == "" {
		req.Format = engine.FormatFromPath(req.Path)
	} else {
		f, err := engine.ParseExportFormat(string(req.Format))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		req.Format = f
	}

	n, err := s.querier.Export(r.Context(), id, req.SQL, req.Path, req.ExportOptions)
	if err != nil {
		if errors.Is(err, engine.ErrNotOpen) || errors.Is(err, engine.ErrNotExportable) || errors.Is(err, context.DeadlineExceeded) {
			writeEngineError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "export_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{Path: req.Path, Format: req.Format, Rows: n})
}
