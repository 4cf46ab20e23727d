// Package engine opens DuckDB databases for profiles and runs queries on
// them. Engine implements conn.Connector so the connection manager decides
// when a profile's database is physically opened and closed.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/multierr"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

var (
	// ErrNotOpen is returned when a query targets a profile whose database
	// is not open. Acquire the profile first.
	ErrNotOpen = errors.New("database not open")

	// ErrReadOnly is returned when a mutating statement targets a
	// read-only profile.
	ErrReadOnly = errors.New("profile is read-only")
)

// ProfileSource resolves profile ids. *profiles.Store satisfies it.
type ProfileSource interface {
	Get(id string) (profiles.Profile, error)
}

// Options configures every database the engine opens.
type Options struct {
	MemoryLimit  string        // SET memory_limit, e.g. "2GB"; empty leaves DuckDB's default
	Threads      int           // SET threads; 0 leaves DuckDB's default
	MaxRows      int           // rows returned per query before truncating; 0 = unlimited
	MaxExecution time.Duration // per-query timeout; 0 = none

	// Holder names another process holding the database file at path, or
	// returns "". It is consulted only after an open fails.
	Holder func(path string) string
}

type handle struct {
	db      *sql.DB
	profile profiles.Profile
}

// Engine holds the open DuckDB handles, one per profile.
type Engine struct {
	profiles ProfileSource
	opts     Options

	mu  sync.RWMutex
	dbs map[conn.ResourceID]*handle
}

var _ conn.Connector = (*Engine)(nil)

// New creates an engine that resolves profiles through src.
func New(src ProfileSource, opts Options) *Engine {
	return &Engine{
		profiles: src,
		opts:     opts,
		dbs:      make(map[conn.ResourceID]*handle),
	}
}

// Open opens the database of profile id and prepares its session: engine
// settings, extensions and views over attached files.
func (e *Engine) Open(ctx context.Context, id conn.ResourceID) error {
	p, err := e.profiles.Get(string(id))
	if err != nil {
		return err
	}

	dsn, err := dataSource(p)
	if err != nil {
		return err
	}

	db, err := sql.Open("duckdb", dsn)
	if err == nil {
		// Temp views live on a single session.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err = db.PingContext(ctx); err != nil {
			db.Close()
		}
	}
	if err != nil {
		if holder := e.holder(p); holder != "" {
			return fmt.Errorf("failed to open %s, held by %s: %w", displayPath(p), holder, err)
		}
		return fmt.Errorf("failed to open %s: %w", displayPath(p), err)
	}
	if err := e.prepare(ctx, db, p); err != nil {
		db.Close()
		return err
	}

	e.mu.Lock()
	old := e.dbs[id]
	e.dbs[id] = &handle{db: db, profile: p}
	e.mu.Unlock()

	if old != nil {
		// The manager never opens twice without a close; a stale handle
		// means the caller bypassed it.
		tuilog.Log.Warn("Replacing open database handle", "profile", id)
		old.db.Close()
	}

	tuilog.Log.Info("Database opened", "profile", id, "path", displayPath(p), "read_only", p.ReadOnly)
	return nil
}

// Close closes the database of profile id. Closing a profile that is not
// open is a no-op.
func (e *Engine) Close(_ context.Context, id conn.ResourceID) error {
	e.mu.Lock()
	h := e.dbs[id]
	delete(e.dbs, id)
	e.mu.Unlock()

	if h == nil {
		return nil
	}
	if err := h.db.Close(); err != nil {
		return fmt.Errorf("close %s: %w", displayPath(h.profile), err)
	}
	tuilog.Log.Info("Database closed", "profile", id)
	return nil
}

// OpenFiles returns the database files of the open handles. In-memory
// databases are left out.
func (e *Engine) OpenFiles() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var paths []string
	for _, h := range e.dbs {
		if !h.profile.IsMemory() {
			paths = append(paths, h.profile.DBPath)
		}
	}
	slices.Sort(paths)
	return paths
}

func (e *Engine) holder(p profiles.Profile) string {
	if e.opts.Holder == nil || p.IsMemory() {
		return ""
	}
	return e.opts.Holder(p.DBPath)
}

// IsOpen reports whether profile id has an open database.
func (e *Engine) IsOpen(id conn.ResourceID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dbs[id] != nil
}

// CloseAll closes every open database.
func (e *Engine) CloseAll() error {
	e.mu.Lock()
	dbs := e.dbs
	e.dbs = make(map[conn.ResourceID]*handle)
	e.mu.Unlock()

	var errs error
	for id, h := range dbs {
		if err := h.db.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	return errs
}

func (e *Engine) lookup(id conn.ResourceID) (*handle, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h := e.dbs[id]
	if h == nil {
		return nil, fmt.Errorf("%w: profile %s", ErrNotOpen, id)
	}
	return h, nil
}

func (e *Engine) prepare(ctx context.Context, db *sql.DB, p profiles.Profile) error {
	if e.opts.MemoryLimit != "" {
		if _, err := db.ExecContext(ctx, "SET memory_limit = "+quoteLiteral(e.opts.MemoryLimit)); err != nil {
			return fmt.Errorf("failed to set memory_limit: %w", err)
		}
	}
	if e.opts.Threads > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET threads = %d", e.opts.Threads)); err != nil {
			return fmt.Errorf("failed to set threads: %w", err)
		}
	}

	// Extension names are validated against [a-z0-9_]+ by the profile store.
	for _, ext := range p.Extensions {
		if _, err := db.ExecContext(ctx, "INSTALL "+ext); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if _, err := db.ExecContext(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	for _, f := range p.AttachedFiles {
		stmt := fmt.Sprintf("CREATE OR REPLACE TEMP VIEW %s AS SELECT * FROM %s",
			quoteIdent(f.Alias), fileSource(f))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to attach %s as %s: %w", f.Path, f.Alias, err)
		}
	}
	return nil
}

func dataSource(p profiles.Profile) (string, error) {
	if p.IsMemory() {
		return "", nil
	}
	if p.ReadOnly {
		if _, err := os.Stat(p.DBPath); err != nil {
			return "", fmt.Errorf("read-only database %s: %w", p.DBPath, err)
		}
		return p.DBPath + "?access_mode=READ_ONLY", nil
	}
	if err := os.MkdirAll(filepath.Dir(p.DBPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create db directory: %w", err)
	}
	return p.DBPath, nil
}

func fileSource(f profiles.AttachedFile) string {
	path := quoteLiteral(f.Path)
	switch f.Type {
	case profiles.FileParquet:
		return "read_parquet(" + path + ")"
	case profiles.FileCSV:
		return "read_csv_auto(" + path + ")"
	case profiles.FileJSON:
		return "read_json_auto(" + path + ")"
	default:
		return path
	}
}

func displayPath(p profiles.Profile) string {
	if p.IsMemory() {
		return profiles.MemoryPath
	}
	return p.DBPath
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
