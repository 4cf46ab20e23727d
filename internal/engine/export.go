package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

// ExportFormat is the file format of an export.
type ExportFormat string

const (
	ExportCSV     ExportFormat = "csv"
	ExportJSON    ExportFormat = "json"
	ExportParquet ExportFormat = "parquet"
)

// ErrNotExportable is returned when the exported statement does not
// produce rows.
var ErrNotExportable = errors.New("only queries can be exported")

// ExportOptions configures Export. Zero values give a comma-separated CSV
// with a header row.
type ExportOptions struct {
	Format     ExportFormat `json:"format"`
	Delimiter  string       `json:"delimiter,omitempty"`   // csv, one character
	SkipHeader bool         `json:"skip_header,omitempty"` // csv
	NDJSON     bool         `json:"ndjson,omitempty"`      // json: one object per line instead of an array
}

// ParseExportFormat accepts csv, json or parquet in any case.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case ExportCSV, ExportJSON, ExportParquet:
		return f, nil
	case "":
		return ExportCSV, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, json or parquet)", s)
	}
}

// FormatFromPath guesses the export format from a file extension.
func FormatFromPath(path string) ExportFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".ndjson", ".jsonl":
		return ExportJSON
	case ".parquet":
		return ExportParquet
	default:
		return ExportCSV
	}
}

// OptionsForPath picks export options from a file extension: .tsv writes
// tab-separated CSV and .ndjson or .jsonl write one JSON object per line.
func OptionsForPath(path string) ExportOptions {
	opts := ExportOptions{Format: FormatFromPath(path)}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		opts.Delimiter = "\t"
	case ".ndjson", ".jsonl":
		opts.NDJSON = true
	}
	return opts
}

// copyOptions renders the option list of a COPY ... TO statement.
func (o ExportOptions) copyOptions() (string, error) {
	format := o.Format
	if format == "" {
		format = ExportCSV
	}
	switch format {
	case ExportCSV:
		delim := o.Delimiter
		if delim == "" {
			delim = ","
		}
		if utf8.RuneCountInString(delim) != 1 {
			return "", fmt.Errorf("delimiter must be a single character, got %q", delim)
		}
		return fmt.Sprintf("FORMAT csv, DELIMITER %s, HEADER %t", quoteLiteral(delim), !o.SkipHeader), nil
	case ExportJSON:
		return fmt.Sprintf("FORMAT json, ARRAY %t", !o.NDJSON), nil
	case ExportParquet:
		return "FORMAT parquet", nil
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

// Export runs query on profile id and writes every result row to path,
// with no row cap. It returns the number of rows written.
func (e *Engine) Export(ctx context.Context, id conn.ResourceID, query, path string, opts ExportOptions) (int64, error) {
	h, err := e.lookup(id)
	if err != nil {
		return 0, err
	}
	if ClassifyStatement(query) != StatementDQL {
		return 0, ErrNotExportable
	}
	copyOpts, err := opts.copyOptions()
	if err != nil {
		return 0, err
	}
	if path == "" {
		return 0, errors.New("export path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	body := strings.TrimRight(strings.TrimSpace(query), ";")
	stmt := fmt.Sprintf("COPY (%s) TO %s (%s)", body, quoteLiteral(path), copyOpts)

	if e.opts.MaxExecution > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.MaxExecution)
		defer cancel()
	}
	r, err := h.db.ExecContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("export to %s: %w", path, err)
	}
	n, _ := r.RowsAffected()
	tuilog.Log.Info("Query exported", "profile", id, "path", path, "format", opts.Format, "rows", n)
	return n, nil
}
