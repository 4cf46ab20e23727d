package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
)

// tablesLoadedMsg delivers a schema listing.
type tablesLoadedMsg struct {
	ID     conn.ResourceID
	Tables []engine.Table
	Err    error
}

// TablesPage lists the tables and views of a profile. It takes its own
// reference on the connection, so it shares the query page's handle.
type TablesPage struct {
	profile profiles.Profile
	lease   *lease
	querier Querier
	keys    tablesKeyMap

	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	loading  bool
	tables   []engine.Table
	cursor   int
	err      error
}

// NewTablesPage creates a table browser for p.
func NewTablesPage(p profiles.Profile, conns Connections, querier Querier) TablesPage {
	return TablesPage{
		profile: p,
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
func (m TablesPage) ActiveProfile() (profiles.Profile, bool) {
	return m.profile, true
}

func (m TablesPage) Mount() tea.Cmd {
	return m.lease.acquireCmd()
}

func (m TablesPage) Unmount() {
	m.lease.release()
}

func (m TablesPage) Init() tea.Cmd {
	return m.spinner.Tick
}

func loadTablesCmd(q Querier, id conn.ResourceID) tea.Cmd {
	return func() tea.Msg {
		tables, err := q.Tables(context.Background(), id)
		return tablesLoadedMsg{ID: id, Tables: tables, Err: err}
	}
}

func (m TablesPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Title line and footer.
		contentHeight := max(1, msg.Height-4)
		if !m.ready {
			m.viewport = viewport.New()
			m.ready = true
		}
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(contentHeight)
		m.viewport.SetContent(m.renderTables())
		return m, nil

	case leaseAcquiredMsg:
		if msg.from != m.lease {
			return m, nil
		}
		if msg.Err != nil {
			m.loading = false
			m.err = msg.Err
			m.refresh()
			return m, nil
		}
		return m, loadTablesCmd(m.querier, m.lease.id)

	case tablesLoadedMsg:
		if msg.ID != m.lease.id {
			return m, nil
		}
		m.loading = false
		m.tables, m.err = msg.Tables, msg.Err
		m.cursor = min(m.cursor, max(0, len(m.tables)-1))
		m.refresh()
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
			return m, tea.Batch(loadTablesCmd(m.querier, m.lease.id), m.spinner.Tick)
		case key.Matches(msg, m.keys.Up):
			m.moveCursor(-1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.moveCursor(1)
			return m, nil
		case key.Matches(msg, m.keys.Open):
			if len(m.tables) == 0 {
				return m, nil
			}
			t := m.tables[m.cursor]
			page := NewTableDetailPage(m.profile, t, m.lease.conns, m.querier)
			return m, func() tea.Msg {
				return PushPageMsg{Item: NavItem{Title: t.Name, Model: page}}
			}
		}
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *TablesPage) moveCursor(delta int) {
	if len(m.tables) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.tables)-1, m.cursor+delta))
	if m.ready {
		m.viewport.SetContent(m.renderTables())
		m.viewport.EnsureVisible(m.cursor, 0, 0)
	}
}

func (m *TablesPage) refresh() {
	if m.ready {
		m.viewport.SetContent(m.renderTables())
		m.viewport.GotoTop()
		m.viewport.EnsureVisible(m.cursor, 0, 0)
	}
}

func (m TablesPage) renderTables() string {
	if m.err != nil {
		return errorTextStyle.Render(m.err.Error())
	}
	if len(m.tables) == 0 {
		if m.loading {
			return ""
		}
		return helpStyle.Render("No tables or views.")
	}

	width := 0
	for _, t := range m.tables {
		width = max(width, len(t.Schema)+1+len(t.Name))
	}

	var b strings.Builder
	for i, t := range m.tables {
		if i > 0 {
			b.WriteString("\n")
		}
		marker := "  "
		if i == m.cursor {
			marker = selectedMarkerStyle.Render("▸ ")
		}
		name := t.Schema + "." + t.Name
		fmt.Fprintf(&b, "%s%s%s  %s", marker, gridHeaderStyle.Render(name), strings.Repeat(" ", width-len(name)), resultInfoStyle.Render(strings.ToLower(t.Type)))
	}
	return b.String()
}

func (m TablesPage) View() tea.View {
	var b strings.Builder
	b.WriteString(queryTitleStyle.Render(m.profile.Name + " tables"))
	if m.loading {
		b.WriteString("  " + m.spinner.View())
	} else if m.err == nil {
		b.WriteString("  " + resultInfoStyle.Render(pluralize(len(m.tables), "table")))
	}
	b.WriteString("\n\n")
	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.renderTables())
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓: select  ·  enter: columns  ·  r: reload  ·  esc: back"))
	return tea.NewView(b.String())
}
