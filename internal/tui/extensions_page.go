package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/table"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

type extensionsLoadedMsg struct {
	ID         conn.ResourceID
	Extensions []engine.Extension
	Err        error
}

type extensionInstalledMsg struct {
	ID   conn.ResourceID
	Name string
	Err  error
}

// ExtensionsPage lists DuckDB extensions for a profile and installs them.
type ExtensionsPage struct {
	profile profiles.Profile
	lease   *lease
	querier Querier
	keys    extensionsKeyMap
	spinner spinner.Model
	table   table.Model

	loading    bool
	installing string
	extensions []engine.Extension
	err        error
	notice     string
}

// NewExtensionsPage creates an extensions page for p.
func NewExtensionsPage(p profiles.Profile, conns Connections, querier Querier) ExtensionsPage {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(colorText).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(colorAccent)

	t := table.New(
		table.WithColumns(extensionColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(styles),
	)
	return ExtensionsPage{
		profile: p,
		lease:   newLease(conns, conn.ResourceID(p.ID)),
		querier: querier,
		keys:    defaultExtensionsKeyMap(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(statusConnectingStyle),
		),
		table:   t,
		loading: true,
	}
}

func extensionColumns(width int) []table.Column {
	desc := max(10, width-16-11-8-10)
	return []table.Column{
		{Title: "Extension", Width: 16},
		{Title: "Installed", Width: 9},
		{Title: "Loaded", Width: 6},
		{Title: "Description", Width: desc},
	}
}

func extensionRows(exts []engine.Extension) []table.Row {
	yes := func(b bool) string {
		if b {
			return "yes"
		}
		return ""
	}
	rows := make([]table.Row, len(exts))
	for i, x := range exts {
		rows[i] = table.Row{x.Name, yes(x.Installed), yes(x.Loaded), x.Description}
	}
	return rows
}

// ActiveProfile implements profilePage.
func (m ExtensionsPage) ActiveProfile() (profiles.Profile, bool) {
	return m.profile, true
}

func (m ExtensionsPage) Mount() tea.Cmd {
	return m.lease.acquireCmd()
}

func (m ExtensionsPage) Unmount() {
	m.lease.release()
}

func (m ExtensionsPage) Init() tea.Cmd {
	return m.spinner.Tick
}

func loadExtensionsCmd(q Querier, id conn.ResourceID) tea.Cmd {
	return func() tea.Msg {
		exts, err := q.Extensions(context.Background(), id)
		return extensionsLoadedMsg{ID: id, Extensions: exts, Err: err}
	}
}

func installExtensionCmd(q Querier, id conn.ResourceID, name string) tea.Cmd {
	return func() tea.Msg {
		err := q.Install(context.Background(), id, name)
		return extensionInstalledMsg{ID: id, Name: name, Err: err}
	}
}

func (m ExtensionsPage) selected() (engine.Extension, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.extensions) {
		return engine.Extension{}, false
	}
	return m.extensions[i], true
}

func (m ExtensionsPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetColumns(extensionColumns(msg.Width))
		m.table.SetWidth(msg.Width)
		// Title, notice and help lines.
		m.table.SetHeight(max(3, msg.Height-6))
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
		return m, loadExtensionsCmd(m.querier, m.lease.id)

	case extensionsLoadedMsg:
		if msg.ID != m.lease.id {
			return m, nil
		}
		m.loading = false
		m.extensions, m.err = msg.Extensions, msg.Err
		m.table.SetRows(extensionRows(m.extensions))
		return m, nil

	case extensionInstalledMsg:
		if msg.ID != m.lease.id {
			return m, nil
		}
		m.installing = ""
		if msg.Err != nil {
			m.notice = ""
			m.err = msg.Err
			return m, nil
		}
		tuilog.Log.Info("Installed extension from TUI", "profile", msg.ID, "extension", msg.Name)
		m.notice = fmt.Sprintf("Installed %s. Add it to the profile's extensions to load it on open.", msg.Name)
		m.loading = true
		return m, tea.Batch(loadExtensionsCmd(m.querier, m.lease.id), m.spinner.Tick)

	case spinner.TickMsg:
		if !m.loading && m.installing == "" {
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
			m.err = nil
			return m, tea.Batch(loadExtensionsCmd(m.querier, m.lease.id), m.spinner.Tick)
		case key.Matches(msg, m.keys.Install):
			x, ok := m.selected()
			if !ok || x.Installed || m.installing != "" {
				return m, nil
			}
			m.installing = x.Name
			m.err, m.notice = nil, ""
			return m, tea.Batch(installExtensionCmd(m.querier, m.lease.id, x.Name), m.spinner.Tick)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ExtensionsPage) View() tea.View {
	var b strings.Builder
	b.WriteString(queryTitleStyle.Render(m.profile.Name + " extensions"))
	switch {
	case m.installing != "":
		b.WriteString("  " + m.spinner.View() + " " + resultInfoStyle.Render("installing "+m.installing))
	case m.loading:
		b.WriteString("  " + m.spinner.View())
	default:
		installed := 0
		for _, x := range m.extensions {
			if x.Installed {
				installed++
			}
		}
		b.WriteString("  " + resultInfoStyle.Render(fmt.Sprintf("%d of %s installed", installed, pluralize(len(m.extensions), "extension"))))
	}
	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorTextStyle.Render(m.err.Error()))
	case m.notice != "":
		b.WriteString(resultInfoStyle.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓: select  ·  i: install  ·  r: reload  ·  esc: back"))
	return tea.NewView(b.String())
}
