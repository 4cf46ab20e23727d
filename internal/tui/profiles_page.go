package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
)

// ProfileLister supplies the profiles to browse. *profiles.Store satisfies it.
type ProfileLister interface {
	List() []profiles.Profile
}

// profileItem wraps a profile for the list.
type profileItem struct {
	profile profiles.Profile
	entry   conn.Entry
}

func (i profileItem) Title() string {
	return i.profile.Name
}

func (i profileItem) Description() string {
	parts := []string{}
	if i.profile.IsMemory() {
		parts = append(parts, "in-memory")
	} else {
		path := i.profile.DBPath
		// Keep it reasonable
		if len(path) > 50 {
			path = "..." + path[len(path)-47:]
		}
		parts = append(parts, path)
	}
	if i.profile.ReadOnly {
		parts = append(parts, "read-only")
	}
	if n := len(i.profile.AttachedFiles); n > 0 {
		parts = append(parts, pluralize(n, "attached file"))
	}
	if i.entry.Status != "" && i.entry.Status != conn.StatusIdle {
		parts = append(parts, string(i.entry.Status))
	}
	return strings.Join(parts, "  •  ")
}

func (i profileItem) FilterValue() string {
	return i.profile.Name + " " + i.profile.DBPath + " " + i.profile.Description
}

// ProfilesPage lists profiles; selecting one opens a query page on it.
type ProfilesPage struct {
	list    list.Model
	source  ProfileLister
	conns   Connections
	querier Querier
	keys    profilesKeyMap
	ready   bool
}

// NewProfilesPage creates the profile list page.
func NewProfilesPage(source ProfileLister, conns Connections, querier Querier) ProfilesPage {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = "Profiles"
	l.SetShowStatusBar(true)
	l.SetShowHelp(true)
	l.SetFilteringEnabled(true)

	m := ProfilesPage{
		list:    l,
		source:  source,
		conns:   conns,
		querier: querier,
		keys:    defaultProfilesKeyMap(),
	}
	m.list.SetItems(m.items())
	return m
}

func (m ProfilesPage) items() []list.Item {
	ps := m.source.List()
	items := make([]list.Item, len(ps))
	for i, p := range ps {
		item := profileItem{profile: p}
		if m.conns != nil {
			item.entry = m.conns.Status(conn.ResourceID(p.ID))
		}
		items[i] = item
	}
	return items
}

func (m ProfilesPage) Init() tea.Cmd {
	return nil
}

func (m ProfilesPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
		m.ready = true
		return m, nil

	case ProfilesChangedMsg:
		return m, m.list.SetItems(m.items())

	case connEventMsg:
		for idx, it := range m.list.Items() {
			pi, ok := it.(profileItem)
			if ok && conn.ResourceID(pi.profile.ID) == msg.Event.ID {
				pi.entry = msg.Event.Entry
				return m, m.list.SetItem(idx, pi)
			}
		}
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, func() tea.Msg { return PopPageMsg{} }

		case key.Matches(msg, m.keys.Refresh):
			return m, m.list.SetItems(m.items())

		case key.Matches(msg, m.keys.Open):
			pi, ok := m.list.SelectedItem().(profileItem)
			if !ok {
				return m, nil
			}
			page := NewQueryPage(pi.profile, m.conns, m.querier)
			return m, func() tea.Msg {
				return PushPageMsg{Item: NavItem{Title: pi.profile.Name, Model: page}}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m ProfilesPage) View() tea.View {
	if !m.ready {
		return tea.NewView("Loading...")
	}
	if len(m.list.Items()) == 0 {
		return tea.NewView(pagePadding.Render(
			"No profiles yet.\n\n" + helpStyle.Render("Create one with: orbitaldb profiles add <name> <path|:memory:>")))
	}
	return tea.NewView(pagePadding.Render(m.list.View()))
}
