package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	logsLines  int
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the orbitaldb log",
	Long: `Print the tail of the log file written by the TUI and the server.

Uses the path given by --log, or ~/.orbitaldb/orbitaldb.log.

Examples:
  orbitaldb logs            # Last 50 lines
  orbitaldb logs -n 200     # Last 200 lines
  orbitaldb logs -f         # Follow new lines`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveLogPath()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return tailLogFile(ctx, cmd.OutOrStdout(), path, logsLines, logsFollow)
	},
}

// tailLogFile prints the last n lines of path to out and, when follow is set,
// keeps copying appended bytes until ctx ends.
func tailLogFile(ctx context.Context, out io.Writer, path string, n int, follow bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("log file not found: %s", path)
		}
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	lines, err := readLastLines(f, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		io.WriteString(out, line)
	}

	if !follow {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch log file: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch log file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) {
				if _, err := io.Copy(out, f); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// readLastLines returns the last n lines of f, each with its trailing
// newline, and leaves f positioned at the end.
func readLastLines(f *os.File, n int) ([]string, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || n <= 0 {
		return nil, nil
	}

	text := string(data)
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	lines := strings.SplitAfter(text, "\n")
	lines = lines[:len(lines)-1] // SplitAfter leaves an empty tail

	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
