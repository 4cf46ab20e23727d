package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wethinkt/go-orbitaldb/internal/profiles"
)

func newSchemaEngine(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t, Options{}, profiles.Profile{ID: "mem", Name: "mem", DBPath: profiles.MemoryPath})
	mustOpen(t, e, "mem")
	mustQuery(t, e, "mem", "CREATE SCHEMA sales")
	mustQuery(t, e, "mem", `CREATE TABLE sales.orders (
		id INTEGER PRIMARY KEY,
		customer VARCHAR NOT NULL,
		note VARCHAR
	)`)
	return e
}

func TestSchemas(t *testing.T) {
	e := newSchemaEngine(t)
	schemas, err := e.Schemas(context.Background(), "mem")
	if err != nil {
		t.Fatalf("Schemas: %v", err)
	}
	found := map[string]bool{}
	for _, s := range schemas {
		found[s] = true
	}
	if !found["main"] || !found["sales"] {
		t.Errorf("schemas = %v, want main and sales", schemas)
	}
	if found["information_schema"] || found["pg_catalog"] {
		t.Errorf("system schemas listed: %v", schemas)
	}
}

func TestColumns(t *testing.T) {
	e := newSchemaEngine(t)
	cols, err := e.Columns(context.Background(), "mem", "sales", "orders")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if len(cols) != 3 {
		t.Fatalf("got %d columns: %+v", len(cols), cols)
	}
	if diff := cmp.Diff(ColumnInfo{Name: "customer", DataType: "VARCHAR", Nullable: false, Position: 2}, cols[1]); diff != "" {
		t.Errorf("customer column (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ColumnInfo{Name: "note", DataType: "VARCHAR", Nullable: true, Position: 3}, cols[2]); diff != "" {
		t.Errorf("note column (-want +got):\n%s", diff)
	}

	none, err := e.Columns(context.Background(), "mem", "sales", "missing")
	if err != nil || len(none) != 0 {
		t.Errorf("missing table = (%v, %v), want empty", none, err)
	}
}

func TestConstraints(t *testing.T) {
	e := newSchemaEngine(t)
	cons, err := e.Constraints(context.Background(), "mem", "sales", "orders")
	if err != nil {
		t.Fatalf("Constraints: %v", err)
	}
	var pk *Constraint
	for i := range cons {
		if cons[i].Type == "PRIMARY KEY" {
			pk = &cons[i]
		}
	}
	if pk == nil {
		t.Fatalf("no primary key in %+v", cons)
	}
	if diff := cmp.Diff([]string{"id"}, pk.Columns); diff != "" {
		t.Errorf("primary key columns (-want +got):\n%s", diff)
	}
}

func TestIntrospectionNotOpen(t *testing.T) {
	e := newTestEngine(t, Options{})
	if _, err := e.Schemas(context.Background(), "nope"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Schemas err = %v", err)
	}
	if _, err := e.Columns(context.Background(), "nope", "main", "t"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Columns err = %v", err)
	}
	if _, err := e.Extensions(context.Background(), "nope"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Extensions err = %v", err)
	}
}

func TestExtensions(t *testing.T) {
	e := newTestEngine(t, Options{}, profiles.Profile{ID: "mem", Name: "mem", DBPath: profiles.MemoryPath})
	mustOpen(t, e, "mem")

	exts, err := e.Extensions(context.Background(), "mem")
	if err != nil {
		t.Fatalf("Extensions: %v", err)
	}
	if len(exts) == 0 {
		t.Fatal("duckdb_extensions() returned nothing")
	}
	for i := 1; i < len(exts); i++ {
		if exts[i-1].Name > exts[i].Name {
			t.Fatalf("not sorted: %s before %s", exts[i-1].Name, exts[i].Name)
		}
	}

	if err := e.Install(context.Background(), "mem", "httpfs; DROP TABLE x"); !errors.Is(err, ErrInvalidExtension) {
		t.Errorf("Install err = %v, want ErrInvalidExtension", err)
	}
}
