package tui

import "charm.land/bubbles/v2/key"

// profilesKeyMap defines key bindings for the profile list
type profilesKeyMap struct {
	Open    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func defaultProfilesKeyMap() profilesKeyMap {
	return profilesKeyMap{
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// queryKeyMap defines key bindings for the query page
type queryKeyMap struct {
	Run        key.Binding
	Back       key.Binding
	Clear      key.Binding
	Tables     key.Binding
	Export     key.Binding
	Extensions key.Binding
	ScrollUp   key.Binding
	ScrollDn   key.Binding
}

func defaultQueryKeyMap() queryKeyMap {
	return queryKeyMap{
		Run: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear"),
		),
		Tables: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "tables"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "export"),
		),
		Extensions: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "extensions"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDn: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "scroll down"),
		),
	}
}

// tablesKeyMap defines key bindings for the table browser
type tablesKeyMap struct {
	Back    key.Binding
	Refresh key.Binding
	Up      key.Binding
	Down    key.Binding
	Open    key.Binding
}

func defaultTablesKeyMap() tablesKeyMap {
	return tablesKeyMap{
		Back: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "back"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "columns"),
		),
	}
}

// extensionsKeyMap defines key bindings for the extensions page
type extensionsKeyMap struct {
	Back    key.Binding
	Refresh key.Binding
	Install key.Binding
}

func defaultExtensionsKeyMap() extensionsKeyMap {
	return extensionsKeyMap{
		Back: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "back"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Install: key.NewBinding(
			key.WithKeys("enter", "i"),
			key.WithHelp("i", "install"),
		),
	}
}
