package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

var (
	queryJSON      bool
	queryOutput    string
	queryFormat    string
	queryDelimiter string
	queryNoHeader  bool
	queryNDJSON    bool
)

var queryCmd = &cobra.Command{
	Use:   "query <profile> <sql>",
	Short: "Run one SQL statement against a profile",
	Long: `Open the profile, run a single statement and print the result.

The profile can be given by id or name. Read-only profiles reject
statements that would modify the database.

With --output the full result (no row limit) is written to a file
instead. The format comes from --format or the file extension:
csv, tsv, json, ndjson/jsonl or parquet.

Examples:
  orbitaldb query scratch "SELECT 42 AS answer"
  orbitaldb query sales "SELECT * FROM orders LIMIT 10" --json
  orbitaldb query sales "SELECT * FROM orders" -o orders.parquet
  orbitaldb query sales "SELECT * FROM orders" -o orders.txt --format csv --delimiter ";"`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	p, err := rt.store.Find(args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	id := conn.ResourceID(p.ID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, err = rt.manager.Acquire(ctx, id)
	defer rt.manager.Release(id)
	if err != nil {
		return err
	}

	if queryOutput != "" {
		return runExport(ctx, cmd, rt.engine, id, args[1])
	}

	tuilog.Log.Debug("Running query", "profile", p.Name)
	res, err := rt.engine.Query(ctx, id, args[1])
	if err != nil {
		return err
	}

	if queryJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return writeResult(cmd.OutOrStdout(), res)
}

// exportOptions builds export options from the query flags, starting from
// what the output path's extension implies.
func exportOptions(cmd *cobra.Command) (engine.ExportOptions, error) {
	opts := engine.OptionsForPath(queryOutput)
	if cmd.Flags().Changed("format") {
		f, err := engine.ParseExportFormat(queryFormat)
		if err != nil {
			return opts, err
		}
		opts.Format = f
	}
	if cmd.Flags().Changed("delimiter") {
		opts.Delimiter = queryDelimiter
	}
	opts.SkipHeader = queryNoHeader
	opts.NDJSON = opts.NDJSON || queryNDJSON
	return opts, nil
}

func runExport(ctx context.Context, cmd *cobra.Command, eng *engine.Engine, id conn.ResourceID, sql string) error {
	opts, err := exportOptions(cmd)
	if err != nil {
		return err
	}
	path, err := filepath.Abs(queryOutput)
	if err != nil {
		return err
	}
	n, err := eng.Export(ctx, id, sql, path, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s (%s)\n", n, path, opts.Format)
	return nil
}

func writeResult(out io.Writer, res *engine.Result) error {
	if len(res.Columns) == 0 {
		fmt.Fprintf(out, "%s OK, %d rows affected (%s)\n", res.StatementType, res.AffectedRows, res.Duration)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	names := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		names[i] = c.Name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	summary := fmt.Sprintf("(%d rows, %s)", res.RowCount, res.Duration)
	if res.Truncated {
		summary = fmt.Sprintf("(first %d rows, truncated, %s)", res.RowCount, res.Duration)
	}
	fmt.Fprintln(out, summary)
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	s := fmt.Sprint(v)
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
}
