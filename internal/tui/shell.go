package tui

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

// NavItem represents a page in the navigation stack
type NavItem struct {
	Title string
	Model tea.Model
}

// Mounter is implemented by pages that need work when they are pushed,
// such as acquiring a connection.
type Mounter interface {
	Mount() tea.Cmd
}

// Unmounter is implemented by pages that hold resources until popped.
type Unmounter interface {
	Unmount()
}

// profilePage is implemented by pages bound to one profile. The status bar
// follows the top-most one.
type profilePage interface {
	ActiveProfile() (profiles.Profile, bool)
}

// NavStack manages navigation history
type NavStack struct {
	items []NavItem
}

func NewNavStack() *NavStack {
	return &NavStack{items: make([]NavItem, 0)}
}

// Push adds item and returns its Init and Mount commands plus a size
// message so it can lay itself out.
func (ns *NavStack) Push(item NavItem, width, height int) tea.Cmd {
	ns.items = append(ns.items, item)
	cmds := []tea.Cmd{item.Model.Init()}
	if m, ok := item.Model.(Mounter); ok {
		cmds = append(cmds, m.Mount())
	}
	if width > 0 && height > 0 {
		cmds = append(cmds, func() tea.Msg {
			return tea.WindowSizeMsg{Width: width, Height: height}
		})
	}
	return tea.Batch(cmds...)
}

// Pop removes the top page and unmounts it.
func (ns *NavStack) Pop() (NavItem, bool) {
	if len(ns.items) == 0 {
		return NavItem{}, false
	}
	item := ns.items[len(ns.items)-1]
	ns.items = ns.items[:len(ns.items)-1]
	if u, ok := item.Model.(Unmounter); ok {
		u.Unmount()
	}
	return item, true
}

// Clear pops every page, unmounting each.
func (ns *NavStack) Clear() {
	for !ns.IsEmpty() {
		ns.Pop()
	}
}

func (ns *NavStack) Peek() (NavItem, bool) {
	if len(ns.items) == 0 {
		return NavItem{}, false
	}
	return ns.items[len(ns.items)-1], true
}

func (ns *NavStack) IsEmpty() bool {
	return len(ns.items) == 0
}

func (ns *NavStack) Path() []string {
	path := make([]string, len(ns.items))
	for i, item := range ns.items {
		path[i] = item.Title
	}
	return path
}

// chromeHeight is the header line plus the status bar line.
const chromeHeight = 2

// Shell is the main TUI container with navigation
type Shell struct {
	width   int
	height  int
	stack   *NavStack
	conns   Connections
	entries map[conn.ResourceID]conn.Entry
	events  <-chan conn.Event
	unsub   func()
}

// NewShell creates the main TUI shell with root as its first page.
func NewShell(conns Connections, root NavItem) *Shell {
	s := &Shell{
		stack:   NewNavStack(),
		conns:   conns,
		entries: make(map[conn.ResourceID]conn.Entry),
	}
	s.stack.items = append(s.stack.items, root)
	return s
}

func (s *Shell) Init() tea.Cmd {
	tuilog.Log.Info("Shell.Init: starting")
	var cmds []tea.Cmd
	if s.conns != nil {
		s.events, s.unsub = s.conns.Subscribe()
		cmds = append(cmds, waitForEvent(s.events))
	}
	if current, ok := s.stack.Peek(); ok {
		cmds = append(cmds, current.Model.Init())
		if m, ok := current.Model.(Mounter); ok {
			cmds = append(cmds, m.Mount())
		}
	}
	return tea.Batch(cmds...)
}

func (s *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		msg.Height = max(0, msg.Height-chromeHeight)
		return s, s.updateCurrent(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return s, s.quit()
		}

	case connEventMsg:
		s.entries[msg.Event.ID] = msg.Event.Entry
		cmds = append(cmds, waitForEvent(s.events))

	case eventsClosedMsg:
		tuilog.Log.Debug("Shell.Update: connection events closed")
		return s, nil

	case PushPageMsg:
		tuilog.Log.Info("Shell.Update: PushPageMsg received", "title", msg.Item.Title)
		return s, s.stack.Push(msg.Item, s.width, s.height)

	case PopPageMsg:
		tuilog.Log.Info("Shell.Update: PopPageMsg received")
		s.stack.Pop()
		if s.stack.IsEmpty() {
			tuilog.Log.Info("Shell.Update: stack empty, quitting")
			return s, s.quit()
		}
		// Send WindowSizeMsg to the revealed page so it re-renders
		if s.width > 0 && s.height > 0 {
			cmds = append(cmds, func() tea.Msg {
				return tea.WindowSizeMsg{Width: s.width, Height: s.height}
			})
		}
		return s, tea.Batch(cmds...)
	}

	cmds = append(cmds, s.updateCurrent(msg))
	return s, tea.Batch(cmds...)
}

// updateCurrent passes msg to the top page.
func (s *Shell) updateCurrent(msg tea.Msg) tea.Cmd {
	current, ok := s.stack.Peek()
	if !ok {
		return nil
	}
	newModel, cmd := current.Model.Update(msg)
	current.Model = newModel
	s.stack.items[len(s.stack.items)-1] = current
	return cmd
}

// quit releases every page's connections before exiting.
func (s *Shell) quit() tea.Cmd {
	s.stack.Clear()
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	return tea.Quit
}

// activeEntry returns the profile and connection entry the status bar shows.
func (s *Shell) activeEntry() (*profiles.Profile, conn.Entry) {
	for i := len(s.stack.items) - 1; i >= 0; i-- {
		pp, ok := s.stack.items[i].Model.(profilePage)
		if !ok {
			continue
		}
		p, ok := pp.ActiveProfile()
		if !ok {
			continue
		}
		id := conn.ResourceID(p.ID)
		entry, seen := s.entries[id]
		if !seen && s.conns != nil {
			entry = s.conns.Status(id)
		}
		return &p, entry
	}
	return nil, conn.Entry{}
}

func (s *Shell) View() tea.View {
	if s.stack.IsEmpty() {
		v := tea.NewView("No pages to display")
		v.AltScreen = true
		return v
	}

	current, _ := s.stack.Peek()
	page := current.Model.View()

	p, entry := s.activeEntry()
	var b strings.Builder
	b.WriteString(renderHeader(s.width, s.stack.Path()))
	b.WriteString("\n")
	b.WriteString(fitHeight(page.Content, max(0, s.height-chromeHeight)))
	b.WriteString("\n")
	b.WriteString(renderStatusBar(s.width, p, entry))

	v := tea.NewView(b.String())
	v.AltScreen = true
	return v
}

// fitHeight pads or cuts content to exactly h lines so the status bar
// stays on the bottom row.
func fitHeight(content string, h int) string {
	if h <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) > h {
		lines = lines[:h]
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
