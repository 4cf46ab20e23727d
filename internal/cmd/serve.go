package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wethinkt/go-orbitaldb/internal/server"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

var (
	servePort  int
	serveHost  string
	serveQuiet bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start a local HTTP server exposing profiles, shared connections and
queries as a REST API.

Clients acquire a profile before querying it and release it when done;
the connection closes once every client has released it and the
keepalive window has passed. Connection status changes stream over a
WebSocket at /api/v1/connections/events.

Endpoints:
  GET    /api/v1/profiles                      List profiles
  POST   /api/v1/profiles                      Create a profile
  POST   /api/v1/connections/{id}/acquire      Take a reference
  POST   /api/v1/connections/{id}/release      Drop a reference
  POST   /api/v1/connections/{id}/query        Run SQL
  POST   /api/v1/connections/{id}/export       Write a query's rows to a file
  GET    /api/v1/connections/{id}/schemas      List schemas
  GET    /api/v1/connections/{id}/tables/{schema}/{table}/columns
  GET    /api/v1/connections/{id}/extensions   List DuckDB extensions
  GET    /metrics                              Prometheus metrics

Examples:
  orbitaldb serve                  # Listen on localhost:7480
  orbitaldb serve -p 8080          # Custom port
  orbitaldb serve --host 0.0.0.0   # Bind to all interfaces`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	host, port := cfg.Server.Host, cfg.Server.Port
	if serveHost != "" {
		host = serveHost
	}
	if cmd.Flags().Changed("port") {
		port = servePort
	}
	tuilog.Log.Info("Starting HTTP server", "port", port, "host", host)

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{Host: host, Port: port, Quiet: serveQuiet}, rt.store, rt.manager, rt.engine)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	g.Go(func() error {
		rt.trackDatabases(ctx)
		return nil
	})
	g.Go(func() error {
		changes, err := rt.store.Watch(ctx)
		if err != nil {
			tuilog.Log.Warn("Profile watcher unavailable", "error", err)
			return nil
		}
		for range changes {
			tuilog.Log.Debug("Profiles reloaded from disk")
		}
		return nil
	})

	err = g.Wait()
	fmt.Fprintln(os.Stderr, "\nShutting down...")
	return err
}
