// Package cmd provides the CLI commands for orbitaldb.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/wethinkt/go-orbitaldb/internal/config"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

// global flags
var (
	profileFile *os.File // held open for profiling
	logPath     string
	verbose     bool
	outputJSON  bool
)

// cfg is loaded once per invocation by the root pre-run hook.
var cfg config.Config

// rootCmd is the root command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "orbitaldb",
	Short: "Explore DuckDB databases from the terminal",
	Long: `orbitaldb manages named DuckDB connection profiles and lets you query
them from an interactive terminal UI or over a local HTTP API.

Each profile points at a database file (or :memory:) and may attach
Parquet, CSV or JSON files as views. Connections are opened on first
use, shared between every view that needs them, and closed a moment
after the last one lets go.

Running without a subcommand launches the interactive TUI.

Commands:
  tui       Launch interactive TUI (default)
  serve     Start the HTTP API
  profiles  List and manage connection profiles
  query     Run one SQL statement against a profile

Examples:
  orbitaldb                                   # Launch TUI
  orbitaldb profiles add scratch :memory:     # In-memory scratch profile
  orbitaldb query scratch "SELECT 42"         # One-shot query`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Start pprof profiling if ORBITALDB_PROFILE is set
		if profilePath := os.Getenv("ORBITALDB_PROFILE"); profilePath != "" {
			f, err := os.Create(profilePath)
			if err != nil {
				return fmt.Errorf("create profile file: %w", err)
			}
			profileFile = f

			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				profileFile = nil
				return fmt.Errorf("start CPU profile: %w", err)
			}
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return initLogging()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		// Stop CPU profiling
		if profileFile != nil {
			pprof.StopCPUProfile()
			profileFile.Close()
			profileFile = nil
		}
		return tuilog.Log.Close()
	},
	RunE: runTUI,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags on root
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "log file (default ~/.orbitaldb/orbitaldb.log)")

	// Serve flags
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config, 7480)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host to bind to (default from config, localhost)")
	serveCmd.Flags().BoolVarP(&serveQuiet, "quiet", "q", false, "disable request logging")

	// Profiles flags
	profilesListCmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	profilesAddCmd.Flags().StringVarP(&addDescription, "description", "d", "", "profile description")
	profilesAddCmd.Flags().BoolVar(&addReadOnly, "read-only", false, "open the database read-only")
	profilesAddCmd.Flags().StringSliceVar(&addExtensions, "ext", nil, "DuckDB extension to load (repeatable)")
	profilesAddCmd.Flags().StringArrayVar(&addAttach, "attach", nil, "attach a file as a view: alias=path[:type] (repeatable)")
	profilesRmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "do not ask for confirmation")
	profilesExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "output file (default stdout)")

	// Query flags
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the result as JSON")
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "", "write the full result to a file instead")
	queryCmd.Flags().StringVar(&queryFormat, "format", "", "export format: csv, json or parquet (default from the file extension)")
	queryCmd.Flags().StringVar(&queryDelimiter, "delimiter", ",", "csv field delimiter")
	queryCmd.Flags().BoolVar(&queryNoHeader, "no-header", false, "omit the csv header row")
	queryCmd.Flags().BoolVar(&queryNDJSON, "ndjson", false, "write json as one object per line")

	// Logs flags
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "number of lines to show")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow new log lines")

	// Version flags
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output as JSON")

	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesAddCmd)
	profilesCmd.AddCommand(profilesRmCmd)
	profilesCmd.AddCommand(profilesExportCmd)
	profilesCmd.AddCommand(profilesImportCmd)

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(versionCmd)
}

// defaultLogPath is where logs go when --log is not given.
func defaultLogPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "orbitaldb.log"), nil
}

func resolveLogPath() (string, error) {
	if logPath != "" {
		return logPath, nil
	}
	return defaultLogPath()
}

func initLogging() error {
	level, err := tuilog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using info\n", err)
	}
	if verbose {
		level = tuilog.LevelDebug
	}
	tuilog.Log.SetLevel(level)

	path, err := resolveLogPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	return tuilog.Init(path)
}
