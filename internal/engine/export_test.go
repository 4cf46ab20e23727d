package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wethinkt/go-orbitaldb/internal/profiles"
)

func TestExport(t *testing.T) {
	e := newTestEngine(t, Options{MaxRows: 1}, profiles.Profile{ID: "mem", Name: "mem", DBPath: profiles.MemoryPath})
	mustOpen(t, e, "mem")
	mustQuery(t, e, "mem", "CREATE TABLE t AS SELECT * FROM (VALUES (1, 'x'), (2, 'y')) v(a, b)")
	dir := t.TempDir()
	ctx := context.Background()
	const q = "SELECT a, b FROM t ORDER BY a;"

	tests := []struct {
		name string
		file string
		opts ExportOptions
		want []string
		not  []string
	}{
		{name: "csv", file: "out.csv", want: []string{"a,b", "1,x", "2,y"}},
		{name: "csv semicolon no header", file: "semi.csv",
			opts: ExportOptions{Format: ExportCSV, Delimiter: ";", SkipHeader: true},
			want: []string{"1;x", "2;y"}, not: []string{"a;b"}},
		{name: "json array", file: "out.json", opts: ExportOptions{Format: ExportJSON},
			want: []string{"[", `"b":"y"`}},
		{name: "ndjson", file: "out.ndjson", opts: ExportOptions{Format: ExportJSON, NDJSON: true},
			want: []string{`{"a":1,"b":"x"}`}, not: []string{"["}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			n, err := e.Export(ctx, "mem", q, path, tt.opts)
			if err != nil {
				t.Fatalf("Export: %v", err)
			}
			// Exports ignore the interactive row cap.
			if n != 2 {
				t.Errorf("rows = %d, want 2", n)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(data), w) {
					t.Errorf("output missing %q:\n%s", w, data)
				}
			}
			for _, w := range tt.not {
				if strings.Contains(string(data), w) {
					t.Errorf("output contains %q:\n%s", w, data)
				}
			}
		})
	}

	t.Run("parquet", func(t *testing.T) {
		path := filepath.Join(dir, "nested", "out.parquet")
		if _, err := e.Export(ctx, "mem", q, path, ExportOptions{Format: ExportParquet}); err != nil {
			t.Fatalf("Export: %v", err)
		}
		res := mustQuery(t, e, "mem", "SELECT count(*) FROM read_parquet("+quoteLiteral(path)+")")
		if got := res.Rows[0][0]; got != int64(2) {
			t.Errorf("parquet rows = %v (%T), want 2", got, got)
		}
	})
}

func TestExportRejects(t *testing.T) {
	e := newTestEngine(t, Options{}, profiles.Profile{ID: "mem", Name: "mem", DBPath: profiles.MemoryPath})
	mustOpen(t, e, "mem")
	path := filepath.Join(t.TempDir(), "x.csv")
	ctx := context.Background()

	if _, err := e.Export(ctx, "mem", "DROP TABLE t", path, ExportOptions{}); !errors.Is(err, ErrNotExportable) {
		t.Errorf("DDL export err = %v, want ErrNotExportable", err)
	}
	if _, err := e.Export(ctx, "mem", "SELECT 1", path, ExportOptions{Delimiter: "::"}); err == nil {
		t.Error("expected error for multi-character delimiter")
	}
	if _, err := e.Export(ctx, "mem", "SELECT 1", path, ExportOptions{Format: "xlsx"}); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := e.Export(ctx, "nope", "SELECT 1", path, ExportOptions{}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("closed profile err = %v", err)
	}
}

func TestParseExportFormat(t *testing.T) {
	for in, want := range map[string]ExportFormat{"": ExportCSV, "CSV": ExportCSV, " json ": ExportJSON, "parquet": ExportParquet} {
		got, err := ParseExportFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseExportFormat(%q) = (%s, %v), want %s", in, got, err, want)
		}
	}
	if _, err := ParseExportFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
	if got := FormatFromPath("/tmp/a.JSONL"); got != ExportJSON {
		t.Errorf("FormatFromPath = %s", got)
	}
}

func TestOptionsForPath(t *testing.T) {
	tests := map[string]ExportOptions{
		"out.csv":      {Format: ExportCSV},
		"out.TSV":      {Format: ExportCSV, Delimiter: "\t"},
		"out.jsonl":    {Format: ExportJSON, NDJSON: true},
		"out.json":     {Format: ExportJSON},
		"out.parquet":  {Format: ExportParquet},
		"no-extension": {Format: ExportCSV},
	}
	for path, want := range tests {
		if got := OptionsForPath(path); got != want {
			t.Errorf("OptionsForPath(%q) = %+v, want %+v", path, got, want)
		}
	}
}
