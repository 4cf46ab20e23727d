package tui

import (
	tea "charm.land/bubbletea/v2"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
)

// Navigation messages
type PushPageMsg struct {
	Item NavItem
}

type PopPageMsg struct{}

// ProfilesChangedMsg tells the profile list to reload, e.g. after the
// profile file changed on disk.
type ProfilesChangedMsg struct{}

// connEventMsg carries one connection manager event into the UI.
type connEventMsg struct {
	Event conn.Event
}

type eventsClosedMsg struct{}

// queryResultMsg is the outcome of a query started from the query page.
type queryResultMsg struct {
	ID     conn.ResourceID
	Result *engine.Result
	Err    error
}

// exportDoneMsg reports a finished export from the query page.
type exportDoneMsg struct {
	ID   conn.ResourceID
	Path string
	Rows int64
	Err  error
}

// waitForEvent reads the next manager event. The shell re-issues it after
// every event it receives.
func waitForEvent(ch <-chan conn.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return connEventMsg{Event: ev}
	}
}
