package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

// StatementType is the broad class of a SQL statement.
type StatementType string

const (
	StatementDQL     StatementType = "DQL"
	StatementDML     StatementType = "DML"
	StatementDDL     StatementType = "DDL"
	StatementTCL     StatementType = "TCL"
	StatementUnknown StatementType = "UNKNOWN"
)

// Mutating reports whether statements of this type change the database.
func (t StatementType) Mutating() bool {
	return t == StatementDML || t == StatementDDL
}

var statementKeywords = map[string]StatementType{
	"SELECT":    StatementDQL,
	"WITH":      StatementDQL,
	"FROM":      StatementDQL,
	"VALUES":    StatementDQL,
	"TABLE":     StatementDQL,
	"SHOW":      StatementDQL,
	"DESCRIBE":  StatementDQL,
	"SUMMARIZE": StatementDQL,
	"EXPLAIN":   StatementDQL,
	"PRAGMA":    StatementDQL,

	"INSERT": StatementDML,
	"UPDATE": StatementDML,
	"DELETE": StatementDML,
	"MERGE":  StatementDML,
	"COPY":   StatementDML,

	"CREATE":   StatementDDL,
	"ALTER":    StatementDDL,
	"DROP":     StatementDDL,
	"TRUNCATE": StatementDDL,
	"ATTACH":   StatementDDL,
	"DETACH":   StatementDDL,
	"COMMENT":  StatementDDL,

	"BEGIN":    StatementTCL,
	"START":    StatementTCL,
	"COMMIT":   StatementTCL,
	"END":      StatementTCL,
	"ROLLBACK": StatementTCL,
	"ABORT":    StatementTCL,
}

// ClassifyStatement returns the type of the first statement in query,
// skipping leading whitespace, comments and parentheses.
func ClassifyStatement(query string) StatementType {
	kw := firstKeyword(query)
	if t, ok := statementKeywords[kw]; ok {
		return t
	}
	return StatementUnknown
}

func firstKeyword(q string) string {
	for {
		q = strings.TrimLeftFunc(q, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })
		switch {
		case strings.HasPrefix(q, "--"):
			i := strings.IndexByte(q, '\n')
			if i < 0 {
				return ""
			}
			q = q[i+1:]
		case strings.HasPrefix(q, "/*"):
			i := strings.Index(q, "*/")
			if i < 0 {
				return ""
			}
			q = q[i+2:]
		default:
			end := strings.IndexFunc(q, func(r rune) bool {
				return !unicode.IsLetter(r) && r != '_'
			})
			if end < 0 {
				end = len(q)
			}
			return strings.ToUpper(q[:end])
		}
	}
}

// Column describes one result column.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// Result is the outcome of a query.
type Result struct {
	Columns       []Column      `json:"columns"`
	Rows          [][]any       `json:"rows"`
	RowCount      int           `json:"row_count"`
	AffectedRows  int64         `json:"affected_rows,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
	Truncated     bool          `json:"truncated,omitempty"`
	StatementType StatementType `json:"statement_type"`
}

// Query runs query on the open database of profile id. Row-returning
// statements are capped at Options.MaxRows with Truncated set when more
// rows were available.
func (e *Engine) Query(ctx context.Context, id conn.ResourceID, query string) (*Result, error) {
	h, err := e.lookup(id)
	if err != nil {
		return nil, err
	}

	stype := ClassifyStatement(query)
	if h.profile.ReadOnly && stype.Mutating() {
		return nil, fmt.Errorf("%w: %s statements are not allowed", ErrReadOnly, stype)
	}

	if e.opts.MaxExecution > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.MaxExecution)
		defer cancel()
	}

	start := time.Now()
	var res *Result
	switch stype {
	case StatementDML, StatementDDL, StatementTCL:
		res, err = e.exec(ctx, h, query)
	default:
		res, err = e.rows(ctx, h, query)
	}
	if err != nil {
		tuilog.Log.Debug("Query failed", "profile", id, "type", stype, "error", err)
		return nil, err
	}
	res.StatementType = stype
	res.Duration = time.Since(start)

	tuilog.Log.Debug("Query complete", "profile", id, "type", stype,
		"rows", res.RowCount, "truncated", res.Truncated, "duration", res.Duration)
	return res, nil
}

func (e *Engine) exec(ctx context.Context, h *handle, query string) (*Result, error) {
	r, err := h.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: []Column{}, Rows: [][]any{}}
	if n, err := r.RowsAffected(); err == nil {
		res.AffectedRows = n
	}
	return res, nil
}

func (e *Engine) rows(ctx context.Context, h *handle, query string) (*Result, error) {
	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	res := &Result{
		Columns: make([]Column, len(types)),
		Rows:    [][]any{},
	}
	for i, ct := range types {
		res.Columns[i] = Column{Name: ct.Name(), DataType: ct.DatabaseTypeName()}
	}

	for rows.Next() {
		if e.opts.MaxRows > 0 && res.RowCount >= e.opts.MaxRows {
			res.Truncated = true
			break
		}
		values := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, values)
		res.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
