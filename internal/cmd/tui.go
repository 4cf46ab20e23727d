package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wethinkt/go-orbitaldb/internal/config"
	"github.com/wethinkt/go-orbitaldb/internal/tui"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI",
	Long: `Browse connection profiles and query them in a terminal interface.

The first screen lists every profile with its live connection status.
Press enter to open a query page; the profile's connection is opened on
entry and released when you leave the page. Edits to the profiles file
made by other processes show up immediately.`,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	tuilog.Log.Info("Starting TUI")

	for _, inst := range config.OtherInstances() {
		if len(inst.Databases) == 0 {
			continue
		}
		fmt.Fprintf(os.Stderr, "Warning: orbitaldb %s (PID %d) holds %s; profiles on those files will not open here.\n",
			inst.Type, inst.PID, strings.Join(inst.Databases, ", "))
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	inst := config.Instance{
		Type:      config.InstanceTUI,
		PID:       os.Getpid(),
		StartedAt: time.Now(),
	}
	if err := config.RegisterInstance(inst); err != nil {
		tuilog.Log.Warn("Failed to register tui instance", "error", err)
	}
	defer config.UnregisterInstance(inst.PID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rt.trackDatabases(ctx)

	changes, err := rt.store.Watch(ctx)
	if err != nil {
		// Live reload is a convenience; the TUI still works without it.
		tuilog.Log.Warn("Profile watcher unavailable", "error", err)
	}

	err = tui.Run(tui.Options{
		Profiles:       rt.store,
		Conns:          rt.manager,
		Querier:        rt.engine,
		ProfileChanges: changes,
	})

	tuilog.Log.Info("TUI exited", "error", err)
	return err
}
