package engine

import (
	"context"
	"strings"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
)

// Table is one table or view visible to a profile's session.
type Table struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Type   string `json:"type"` // BASE TABLE, VIEW, LOCAL TEMPORARY
}

// Tables lists the tables and views of profile id, including views over
// attached files.
func (e *Engine) Tables(ctx context.Context, id conn.ResourceID) ([]Table, error) {
	h, err := e.lookup(id)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema NOT IN ('information_schema', 'pg_catalog')
		ORDER BY table_schema, table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Schema, &t.Name, &t.Type); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// Schemas lists the schemas of profile id's session.
func (e *Engine) Schemas(ctx context.Context, id conn.ResourceID) ([]string, error) {
	h, err := e.lookup(id)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT DISTINCT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'pg_catalog')
		ORDER BY schema_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}

// ColumnInfo describes one column of a table or view.
type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
	Position int    `json:"position"`
}

// Columns lists the columns of schema.table in ordinal order.
func (e *Engine) Columns(ctx context.Context, id conn.ResourceID, schema, table string) ([]ColumnInfo, error) {
	h, err := e.lookup(id)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES', ordinal_position
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Position); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Constraint is a PRIMARY KEY, UNIQUE, FOREIGN KEY, CHECK or NOT NULL
// constraint on a table.
type Constraint struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Columns []string `json:"columns"`
	Details string   `json:"details,omitempty"`
}

// Constraints lists the constraints declared on schema.table.
func (e *Engine) Constraints(ctx context.Context, id conn.ResourceID, schema, table string) ([]Constraint, error) {
	h, err := e.lookup(id)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT constraint_name, constraint_type,
		       COALESCE(array_to_string(constraint_column_names, ','), ''),
		       COALESCE(constraint_text, '')
		FROM duckdb_constraints()
		WHERE schema_name = ? AND table_name = ?
		ORDER BY constraint_index`, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Constraint
	for rows.Next() {
		var (
			c    Constraint
			cols string
		)
		if err := rows.Scan(&c.Name, &c.Type, &cols, &c.Details); err != nil {
			return nil, err
		}
		c.Columns = splitList(cols)
		out = append(out, c)
	}
	return out, rows.Err()
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
