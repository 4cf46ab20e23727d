package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

// Querier runs SQL on acquired profiles. *engine.Engine satisfies it.
type Querier interface {
	Query(ctx context.Context, id conn.ResourceID, query string) (*engine.Result, error)
	Tables(ctx context.Context, id conn.ResourceID) ([]engine.Table, error)
	Columns(ctx context.Context, id conn.ResourceID, schema, table string) ([]engine.ColumnInfo, error)
	Constraints(ctx context.Context, id conn.ResourceID, schema, table string) ([]engine.Constraint, error)
	Extensions(ctx context.Context, id conn.ResourceID) ([]engine.Extension, error)
	Install(ctx context.Context, id conn.ResourceID, name string) error
	Export(ctx context.Context, id conn.ResourceID, query, path string, opts engine.ExportOptions) (int64, error)
}

// QueryPage edits and runs SQL against one profile. It holds a reference
// on the profile's connection from push until pop.
type QueryPage struct {
	profile profiles.Profile
	lease   *lease
	querier Querier
	keys    queryKeyMap

	input      textinput.Model
	result     *engine.Result
	lastQuery  string
	err        error
	acquireErr error
	running    bool
	offset     int

	// export prompt
	exporting   bool
	exportInput textinput.Model
	exportBusy  bool
	notice      string

	width  int
	height int
}

// NewQueryPage creates a query page for p.
func NewQueryPage(p profiles.Profile, conns Connections, querier Querier) QueryPage {
	ti := textinput.New()
	ti.Placeholder = "SELECT * FROM ..."
	ti.Prompt = "SQL ▸ "
	ti.CharLimit = 0
	ti.Focus()

	ei := textinput.New()
	ei.Placeholder = "results.csv"
	ei.Prompt = "Export to ▸ "
	ei.CharLimit = 0

	return QueryPage{
		profile:     p,
		lease:       newLease(conns, conn.ResourceID(p.ID)),
		querier:     querier,
		keys:        defaultQueryKeyMap(),
		input:       ti,
		exportInput: ei,
	}
}

// ActiveProfile implements profilePage.
func (m QueryPage) ActiveProfile() (profiles.Profile, bool) {
	return m.profile, true
}

// Mount acquires the profile's connection.
func (m QueryPage) Mount() tea.Cmd {
	tuilog.Log.Debug("QueryPage mounted", "profile", m.profile.ID)
	return m.lease.acquireCmd()
}

// Unmount releases the profile's connection.
func (m QueryPage) Unmount() {
	tuilog.Log.Debug("QueryPage unmounted", "profile", m.profile.ID)
	m.lease.release()
}

func (m QueryPage) Init() tea.Cmd {
	return textinput.Blink
}

func (m QueryPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(max(10, msg.Width-12))
		m.exportInput.SetWidth(max(10, msg.Width-18))
		return m, nil

	case leaseAcquiredMsg:
		if msg.from == m.lease {
			m.acquireErr = msg.Err
		}
		return m, nil

	case queryResultMsg:
		if msg.ID != m.lease.id {
			return m, nil
		}
		m.running = false
		m.result, m.err = msg.Result, msg.Err
		m.offset = 0
		if msg.Err != nil {
			m.lastQuery = ""
		}
		return m, nil

	case exportDoneMsg:
		if msg.ID != m.lease.id {
			return m, nil
		}
		m.exportBusy = false
		if msg.Err != nil {
			m.notice = ""
			m.err = fmt.Errorf("export failed: %w", msg.Err)
			return m, nil
		}
		m.notice = fmt.Sprintf("Exported %s to %s", pluralize(int(msg.Rows), "row"), msg.Path)
		return m, nil

	case tea.KeyMsg:
		if m.exporting {
			return m.updateExportPrompt(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return PopPageMsg{} }

		case key.Matches(msg, m.keys.Run):
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.running {
				return m, nil
			}
			m.running = true
			m.err = nil
			m.notice = ""
			m.lastQuery = q
			return m, runQueryCmd(m.querier, m.lease.id, q)

		case key.Matches(msg, m.keys.Export):
			if !m.canExport() {
				return m, nil
			}
			m.exporting = true
			m.input.Blur()
			cmd := m.exportInput.Focus()
			return m, cmd

		case key.Matches(msg, m.keys.Extensions):
			page := NewExtensionsPage(m.profile, m.lease.conns, m.querier)
			return m, func() tea.Msg {
				return PushPageMsg{Item: NavItem{Title: "Extensions", Model: page}}
			}

		case key.Matches(msg, m.keys.Tables):
			page := NewTablesPage(m.profile, m.lease.conns, m.querier)
			return m, func() tea.Msg {
				return PushPageMsg{Item: NavItem{Title: "Tables", Model: page}}
			}

		case key.Matches(msg, m.keys.Clear):
			m.input.Reset()
			m.result, m.err = nil, nil
			m.lastQuery, m.notice = "", ""
			return m, nil

		case key.Matches(msg, m.keys.ScrollUp):
			m.offset = max(0, m.offset-m.gridRows())
			return m, nil

		case key.Matches(msg, m.keys.ScrollDn):
			if m.result != nil {
				m.offset = min(max(0, len(m.result.Rows)-1), m.offset+m.gridRows())
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// canExport reports whether the last result came from a query that can be
// re-run into a file.
func (m QueryPage) canExport() bool {
	return m.lastQuery != "" && !m.running && !m.exportBusy &&
		m.result != nil && m.result.StatementType == engine.StatementDQL
}

func (m QueryPage) updateExportPrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.exporting = false
		m.exportInput.Blur()
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Run):
		path := strings.TrimSpace(m.exportInput.Value())
		if path == "" {
			path = m.exportInput.Placeholder
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		m.exporting = false
		m.exportBusy = true
		m.exportInput.Blur()
		m.notice = "Exporting…"
		focus := m.input.Focus()
		return m, tea.Batch(focus, exportCmd(m.querier, m.lease.id, m.lastQuery, path))
	}

	var cmd tea.Cmd
	m.exportInput, cmd = m.exportInput.Update(msg)
	return m, cmd
}

// exportCmd re-runs query into path, with the format taken from the path's
// extension. Exports are not capped at the interactive row limit.
func exportCmd(q Querier, id conn.ResourceID, query, path string) tea.Cmd {
	return func() tea.Msg {
		n, err := q.Export(context.Background(), id, query, path, engine.OptionsForPath(path))
		return exportDoneMsg{ID: id, Path: path, Rows: n, Err: err}
	}
}

func runQueryCmd(q Querier, id conn.ResourceID, sql string) tea.Cmd {
	return func() tea.Msg {
		res, err := q.Query(context.Background(), id, sql)
		return queryResultMsg{ID: id, Result: res, Err: err}
	}
}

// gridRows is how many result rows fit under the input, header and footer.
func (m QueryPage) gridRows() int {
	return max(1, m.height-8)
}

func (m QueryPage) View() tea.View {
	var b strings.Builder

	b.WriteString(queryTitleStyle.Render(m.profile.Name))
	if m.profile.Description != "" {
		b.WriteString("  " + helpStyle.Render(m.profile.Description))
	}
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.exporting {
		b.WriteString(m.exportInput.View())
		b.WriteString("  " + helpStyle.Render(".csv .tsv .json .ndjson .parquet"))
	} else if m.notice != "" {
		b.WriteString(resultInfoStyle.Render(m.notice))
	}
	b.WriteString("\n")

	switch {
	case m.acquireErr != nil && m.result == nil && m.err == nil:
		b.WriteString(errorTextStyle.Render("Connection failed: " + m.acquireErr.Error()))
	case m.running:
		b.WriteString(resultInfoStyle.Render("Running…"))
	case m.err != nil:
		b.WriteString(errorTextStyle.Render(m.err.Error()))
	case m.result != nil:
		if len(m.result.Columns) > 0 {
			b.WriteString(renderGrid(m.result, m.width, m.gridRows(), m.offset))
			b.WriteString("\n")
		}
		b.WriteString(resultInfoStyle.Render(resultSummary(m.result)))
	}

	b.WriteString("\n\n")
	if m.exporting {
		b.WriteString(helpStyle.Render("enter: export  ·  esc: cancel"))
	} else {
		b.WriteString(helpStyle.Render("enter: run  ·  pgup/pgdn: scroll  ·  ctrl+e: export  ·  ctrl+t: tables  ·  ctrl+x: extensions  ·  ctrl+l: clear  ·  esc: back"))
	}

	return tea.NewView(b.String())
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
