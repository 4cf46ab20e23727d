// Package server implements the HTTP API for orbitaldb serve.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wethinkt/go-orbitaldb/internal/config"
	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

// Config holds server configuration.
type Config struct {
	Host  string
	Port  int
	Quiet bool // disable request logging
}

// ProfileStore is the profile persistence the API needs. *profiles.Store
// satisfies it.
type ProfileStore interface {
	List() []profiles.Profile
	Get(id string) (profiles.Profile, error)
	Create(in profiles.Input) (profiles.Profile, error)
	Update(id string, u profiles.Update) (profiles.Profile, error)
	Delete(id string) error
}

// Querier runs SQL on open profiles. *engine.Engine satisfies it.
type Querier interface {
	Query(ctx context.Context, id conn.ResourceID, query string) (*engine.Result, error)
	Tables(ctx context.Context, id conn.ResourceID) ([]engine.Table, error)
	Schemas(ctx context.Context, id conn.ResourceID) ([]string, error)
	Columns(ctx context.Context, id conn.ResourceID, schema, table string) ([]engine.ColumnInfo, error)
	Constraints(ctx context.Context, id conn.ResourceID, schema, table string) ([]engine.Constraint, error)
	Extensions(ctx context.Context, id conn.ResourceID) ([]engine.Extension, error)
	Install(ctx context.Context, id conn.ResourceID, name string) error
	Export(ctx context.Context, id conn.ResourceID, query, path string, opts engine.ExportOptions) (int64, error)
}

// Server serves the REST API and the connection event stream.
type Server struct {
	config    Config
	store     ProfileStore
	manager   *conn.Manager
	querier   Querier
	router    chi.Router
	startedAt time.Time
}

// New creates a server over the given profile store, connection manager
// and query engine.
func New(cfg Config, store ProfileStore, manager *conn.Manager, querier Querier) *Server {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	s := &Server{
		config:    cfg,
		store:     store,
		manager:   manager,
		querier:   querier,
		startedAt: time.Now(),
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures all routes.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)
	if !s.config.Quiet {
		r.Use(middleware.Logger)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/profiles", s.handleListProfiles)
		r.Post("/profiles", s.handleCreateProfile)
		r.Get("/profiles/{id}", s.handleGetProfile)
		r.Patch("/profiles/{id}", s.handleUpdateProfile)
		r.Delete("/profiles/{id}", s.handleDeleteProfile)

		r.Get("/connections", s.handleListConnections)
		r.Get("/connections/events", s.handleConnectionEvents)
		r.Get("/connections/{id}", s.handleGetConnection)
		r.Post("/connections/{id}/acquire", s.handleAcquire)
		r.Post("/connections/{id}/release", s.handleRelease)
		r.Post("/connections/{id}/query", s.handleQuery)
		r.Get("/connections/{id}/tables", s.handleTables)
		r.Get("/connections/{id}/schemas", s.handleSchemas)
		r.Get("/connections/{id}/tables/{schema}/{table}/columns", s.handleColumns)
		r.Get("/connections/{id}/tables/{schema}/{table}/constraints", s.handleConstraints)
		r.Get("/connections/{id}/extensions", s.handleExtensions)
		r.Post("/connections/{id}/extensions/{name}/install", s.handleInstallExtension)
		r.Post("/connections/{id}/export", s.handleExport)
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if existing := config.FindInstanceByPort(s.config.Port); existing != nil && existing.PID != os.Getpid() {
		return fmt.Errorf("port %d is already in use by orbitaldb %s (PID %d, started %s)",
			s.config.Port, existing.Type, existing.PID, existing.StartedAt.Format(time.RFC3339))
	}

	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// Update port if it was auto-assigned
	if s.config.Port == 0 {
		s.config.Port = ln.Addr().(*net.TCPAddr).Port
	}

	inst := config.Instance{
		Type:      config.InstanceServe,
		PID:       os.Getpid(),
		Port:      s.config.Port,
		Host:      s.config.Host,
		StartedAt: s.startedAt,
	}
	if err := config.RegisterInstance(inst); err != nil {
		tuilog.Log.Warn("Failed to register serve instance", "error", err)
	}
	defer config.UnregisterInstance(inst.PID)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	tuilog.Log.Info("HTTP server listening", "addr", s.Addr())
	fmt.Printf("orbitaldb API running at http://%s/api/v1\n", s.Addr())
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
