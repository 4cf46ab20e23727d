package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"go.uber.org/multierr"

	"github.com/wethinkt/go-orbitaldb/internal/config"
	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

const shutdownTimeout = 15 * time.Second

// runtime bundles the profile store, the DuckDB engine and the connection
// manager that every long-running command shares.
type runtime struct {
	store   *profiles.Store
	engine  *engine.Engine
	manager *conn.Manager
}

func openStore() (*profiles.Store, error) {
	path, err := profiles.DefaultPath()
	if err != nil {
		return nil, err
	}
	store, err := profiles.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profiles: %w", err)
	}
	return store, nil
}

func newRuntime() (*runtime, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	eng := engine.New(store, engine.Options{
		MemoryLimit:  cfg.DuckDB.MemoryLimit,
		Threads:      cfg.DuckDB.Threads,
		MaxRows:      cfg.Results.MaxRows,
		MaxExecution: cfg.Results.MaxExecutionDuration(),
		Holder:       databaseHolder,
	})
	manager := conn.NewManager(eng, conn.Config{Keepalive: cfg.KeepaliveDuration()})
	tuilog.Log.Debug("Runtime ready", "profiles", len(store.List()), "keepalive", manager.Keepalive())
	return &runtime{store: store, engine: eng, manager: manager}, nil
}

// databaseHolder describes the other orbitaldb process holding path.
func databaseHolder(path string) string {
	inst := config.DatabaseHolder(path)
	if inst == nil {
		return ""
	}
	return fmt.Sprintf("orbitaldb %s (PID %d)", inst.Type, inst.PID)
}

// trackDatabases keeps this process's instance entry in step with the
// database files it has open, until ctx ends or the manager closes. The
// process must already be registered.
func (rt *runtime) trackDatabases(ctx context.Context) {
	events, unsubscribe := rt.manager.Subscribe()
	defer unsubscribe()

	pid := os.Getpid()
	var held []string
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
		}
		files := rt.engine.OpenFiles()
		if slices.Equal(files, held) {
			continue
		}
		held = files
		if err := config.SetDatabases(pid, files); err != nil {
			tuilog.Log.Warn("Failed to record open databases", "error", err)
		}
	}
}

// Close shuts the manager down, closing every open connection, then sweeps
// any handle the manager no longer tracks.
func (rt *runtime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := rt.manager.Close(ctx)
	err = multierr.Append(err, rt.engine.CloseAll())
	if err != nil {
		tuilog.Log.Error("Shutdown finished with errors", "error", err)
	}
	return err
}
