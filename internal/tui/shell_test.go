package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/engine"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
)

type sizeProbeModel struct {
	lastWidth  int
	lastHeight int
	seenSize   bool
	mounted    bool
	unmounted  bool
}

func (m *sizeProbeModel) Init() tea.Cmd { return nil }

func (m *sizeProbeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.lastWidth = ws.Width
		m.lastHeight = ws.Height
		m.seenSize = true
	}
	return m, nil
}

func (m *sizeProbeModel) View() tea.View {
	return tea.NewView("")
}

func (m *sizeProbeModel) Mount() tea.Cmd {
	m.mounted = true
	return nil
}

func (m *sizeProbeModel) Unmount() {
	m.unmounted = true
}

type nopQuerier struct {
	tables      []engine.Table
	columns     []engine.ColumnInfo
	constraints []engine.Constraint
	extensions  []engine.Extension
	calls       *querierCalls
}

// querierCalls records side-effecting calls made through a nopQuerier.
type querierCalls struct {
	mu       sync.Mutex
	installs []string
	exports  []string
}

func (nopQuerier) Query(ctx context.Context, id conn.ResourceID, q string) (*engine.Result, error) {
	return &engine.Result{StatementType: engine.StatementDQL}, nil
}

func (q nopQuerier) Tables(ctx context.Context, id conn.ResourceID) ([]engine.Table, error) {
	return q.tables, nil
}

func (q nopQuerier) Columns(ctx context.Context, id conn.ResourceID, schema, table string) ([]engine.ColumnInfo, error) {
	return q.columns, nil
}

func (q nopQuerier) Constraints(ctx context.Context, id conn.ResourceID, schema, table string) ([]engine.Constraint, error) {
	return q.constraints, nil
}

func (q nopQuerier) Extensions(ctx context.Context, id conn.ResourceID) ([]engine.Extension, error) {
	return q.extensions, nil
}

func (q nopQuerier) Install(ctx context.Context, id conn.ResourceID, name string) error {
	if q.calls != nil {
		q.calls.mu.Lock()
		q.calls.installs = append(q.calls.installs, name)
		q.calls.mu.Unlock()
	}
	return nil
}

func (q nopQuerier) Export(ctx context.Context, id conn.ResourceID, query, path string, opts engine.ExportOptions) (int64, error) {
	if q.calls != nil {
		q.calls.mu.Lock()
		q.calls.exports = append(q.calls.exports, fmt.Sprintf("%s|%s|%s", query, path, opts.Format))
		q.calls.mu.Unlock()
	}
	return 3, nil
}

func runAllCmdMessages(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if msg == nil {
		return nil
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, sub := range batch {
			out = append(out, runAllCmdMessages(sub)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestShellPopPageRebroadcastsFullWindowSize(t *testing.T) {
	revealed := &sizeProbeModel{}
	top := &sizeProbeModel{}

	s := &Shell{
		width:   120,
		height:  40,
		stack:   NewNavStack(),
		entries: make(map[conn.ResourceID]conn.Entry),
	}
	s.stack.items = append(s.stack.items,
		NavItem{Title: "revealed", Model: revealed},
		NavItem{Title: "top", Model: top},
	)

	model, cmd := s.Update(PopPageMsg{})
	shell, ok := model.(*Shell)
	if !ok {
		t.Fatalf("expected *Shell model, got %T", model)
	}
	if len(shell.stack.items) != 1 {
		t.Fatalf("expected one page after pop, got %d", len(shell.stack.items))
	}
	if !top.unmounted {
		t.Error("popped page was not unmounted")
	}

	msgs := runAllCmdMessages(cmd)
	var rawSize *tea.WindowSizeMsg
	for _, msg := range msgs {
		if ws, ok := msg.(tea.WindowSizeMsg); ok {
			copy := ws
			rawSize = &copy
		}
	}
	if rawSize == nil {
		t.Fatalf("expected a WindowSizeMsg in command batch, got %#v", msgs)
	}
	if rawSize.Width != 120 || rawSize.Height != 40 {
		t.Fatalf("expected full window size 120x40 from rebroadcast, got %dx%d", rawSize.Width, rawSize.Height)
	}

	for _, msg := range msgs {
		model, _ = shell.Update(msg)
		shell = model.(*Shell)
	}

	if !revealed.seenSize {
		t.Fatal("revealed page did not receive size update")
	}
	// Header and status bar take one line each.
	if revealed.lastWidth != 120 || revealed.lastHeight != 38 {
		t.Fatalf("expected revealed child size 120x38, got %dx%d", revealed.lastWidth, revealed.lastHeight)
	}
}

func TestShellPushMounts(t *testing.T) {
	root := &sizeProbeModel{}
	s := NewShell(nil, NavItem{Title: "root", Model: root})

	page := &sizeProbeModel{}
	s.Update(PushPageMsg{Item: NavItem{Title: "page", Model: page}})

	if !page.mounted {
		t.Fatal("pushed page was not mounted")
	}
	if got := strings.Join(s.stack.Path(), "/"); got != "root/page" {
		t.Errorf("path = %q", got)
	}
}

func TestShellPopLastPageQuits(t *testing.T) {
	root := &sizeProbeModel{}
	s := NewShell(nil, NavItem{Title: "root", Model: root})

	_, cmd := s.Update(PopPageMsg{})
	if !root.unmounted {
		t.Error("root page was not unmounted")
	}
	msgs := runAllCmdMessages(cmd)
	if len(msgs) != 1 {
		t.Fatalf("msgs = %#v, want a single quit", msgs)
	}
	if _, ok := msgs[0].(tea.QuitMsg); !ok {
		t.Errorf("msg = %T, want tea.QuitMsg", msgs[0])
	}
}

func TestShellQuitReleasesQueryPage(t *testing.T) {
	fc := newFakeConns()
	p := profiles.Profile{ID: "p1", Name: "scratch", DBPath: profiles.MemoryPath}
	root := &sizeProbeModel{}
	s := NewShell(fc, NavItem{Title: "root", Model: root})
	s.Init()

	page := NewQueryPage(p, fc, nopQuerier{})
	_, cmd := s.Update(PushPageMsg{Item: NavItem{Title: p.Name, Model: page}})

	// Run the acquire the push scheduled.
	for _, msg := range runAllCmdMessages(cmd) {
		if _, ok := msg.(leaseAcquiredMsg); ok {
			s.Update(msg)
		}
	}
	if a, _ := fc.counts("p1"); a != 1 {
		t.Fatalf("acquires = %d, want 1", a)
	}

	s.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})

	if a, r := fc.counts("p1"); a != 1 || r != 1 {
		t.Fatalf("acquires=%d releases=%d after quit, want 1/1", a, r)
	}
	if !root.unmounted {
		t.Error("root page was not unmounted on quit")
	}
}

func TestShellStatusBarFollowsEvents(t *testing.T) {
	fc := newFakeConns()
	p := profiles.Profile{ID: "p1", Name: "scratch", DBPath: profiles.MemoryPath}
	s := NewShell(fc, NavItem{Title: "root", Model: &sizeProbeModel{}})
	s.Update(tea.WindowSizeMsg{Width: 100, Height: 20})

	if view := ansi.Strip(s.View().Content); !strings.Contains(view, "No profile selected") {
		t.Errorf("root view status bar:\n%s", view)
	}

	s.stack.items = append(s.stack.items, NavItem{Title: p.Name, Model: NewQueryPage(p, fc, nopQuerier{})})
	s.Update(connEventMsg{Event: conn.Event{
		Entry: conn.Entry{ID: "p1", Refs: 1, Status: conn.StatusConnecting},
		Time:  time.Now(),
	}})

	view := ansi.Strip(s.View().Content)
	for _, want := range []string{"Connecting…", "scratch", "in-memory", "refs 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("status bar missing %q:\n%s", want, view)
		}
	}

	s.Update(connEventMsg{Event: conn.Event{
		Entry: conn.Entry{ID: "p1", Refs: 1, Status: conn.StatusFailed, LastError: "no such file"},
	}})
	view = ansi.Strip(s.View().Content)
	if !strings.Contains(view, "Failed: no such file") {
		t.Errorf("status bar missing failure:\n%s", view)
	}
}
