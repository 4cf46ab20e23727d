package tui

import (
	"context"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
)

// tableDetailMsg delivers the columns and constraints of one table.
type tableDetailMsg struct {
	ID          conn.ResourceID
	Table       engine.Table
	Columns     []engine.ColumnInfo
	Constraints []engine.Constraint
	Err         error
}

// TableDetailPage shows the columns and constraints of one table. Like the
// other pages of a profile it holds its own reference on the connection.
type TableDetailPage struct {
	profile profiles.Profile
	table   engine.Table
	lease   *lease
	querier Querier
	keys    tablesKeyMap
	spinner spinner.Model

	loading     bool
	columns     []engine.ColumnInfo
	constraints []engine.Constraint
	err         error
	width       int
}

// NewTableDetailPage creates a detail page for table t of profile p.
func NewTableDetailPage(p profiles.Profile, t engine.Table, conns Connections, querier Querier) TableDetailPage {
	return TableDetailPage{
		profile: p,
		table:   t,
		lease:   newLease(conns, conn.ResourceID(p.ID)),
		querier: querier,
		keys:    defaultTablesKeyMap(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(statusConnectingStyle),
		),
		loading: true,
	}
}

// ActiveProfile implements profilePage.
func (m TableDetailPage) ActiveProfile() (profiles.Profile, bool) {
	return m.profile, true
}

func (m TableDetailPage) Mount() tea.Cmd {
	return m.lease.acquireCmd()
}

func (m TableDetailPage) Unmount() {
	m.lease.release()
}

func (m TableDetailPage) Init() tea.Cmd {
	return m.spinner.Tick
}

func loadTableDetailCmd(q Querier, id conn.ResourceID, t engine.Table) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		cols, err := q.Columns(ctx, id, t.Schema, t.Name)
		if err != nil {
			return tableDetailMsg{ID: id, Table: t, Err: err}
		}
		cons, err := q.Constraints(ctx, id, t.Schema, t.Name)
		return tableDetailMsg{ID: id, Table: t, Columns: cols, Constraints: cons, Err: err}
	}
}

func (m TableDetailPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case leaseAcquiredMsg:
		if msg.from != m.lease {
			return m, nil
		}
		if msg.Err != nil {
			m.loading = false
			m.err = msg.Err
			return m, nil
		}
		return m, loadTableDetailCmd(m.querier, m.lease.id, m.table)

	case tableDetailMsg:
		if msg.ID != m.lease.id || msg.Table != m.table {
			return m, nil
		}
		m.loading = false
		m.columns, m.constraints, m.err = msg.Columns, msg.Constraints, msg.Err
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return PopPageMsg{} }
		case key.Matches(msg, m.keys.Refresh):
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(loadTableDetailCmd(m.querier, m.lease.id, m.table), m.spinner.Tick)
		}
	}
	return m, nil
}

// columnsResult lays the column list out as a result so it renders with
// the query grid.
func columnsResult(cols []engine.ColumnInfo) *engine.Result {
	res := &engine.Result{Columns: []engine.Column{{Name: "#"}, {Name: "column"}, {Name: "type"}, {Name: "null"}}}
	for _, c := range cols {
		null := "NOT NULL"
		if c.Nullable {
			null = ""
		}
		res.Rows = append(res.Rows, []any{c.Position, c.Name, c.DataType, null})
	}
	return res
}

func constraintsResult(cons []engine.Constraint) *engine.Result {
	res := &engine.Result{Columns: []engine.Column{{Name: "constraint"}, {Name: "columns"}, {Name: "definition"}}}
	for _, c := range cons {
		res.Rows = append(res.Rows, []any{c.Type, strings.Join(c.Columns, ", "), c.Details})
	}
	return res
}

func (m TableDetailPage) View() tea.View {
	var b strings.Builder
	b.WriteString(queryTitleStyle.Render(m.table.Schema + "." + m.table.Name))
	b.WriteString("  " + resultInfoStyle.Render(strings.ToLower(m.table.Type)))
	if m.loading {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorTextStyle.Render(m.err.Error()))
	case !m.loading:
		b.WriteString(renderGrid(columnsResult(m.columns), m.width, 0, 0))
		b.WriteString("\n")
		b.WriteString(resultInfoStyle.Render(pluralize(len(m.columns), "column")))
		b.WriteString("\n\n")
		if len(m.constraints) == 0 {
			b.WriteString(helpStyle.Render("No constraints."))
		} else {
			b.WriteString(renderGrid(constraintsResult(m.constraints), m.width, 0, 0))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("r: reload  ·  esc: back"))
	return tea.NewView(b.String())
}
