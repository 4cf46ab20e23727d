package conn

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryGetDefaultsToIdle(t *testing.T) {
	r := NewRegistry()
	got := r.Get("missing")
	want := Entry{ID: "missing", Status: StatusIdle, Timer: TimerNone}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Get mismatch (-want +got):\n%s", diff)
	}
	if r.Has("missing") {
		t.Fatal("Get must not create an entry")
	}
}

func TestRegistryIncrementDecrement(t *testing.T) {
	r := NewRegistry()

	if n := r.Increment("a"); n != 1 {
		t.Fatalf("first increment = %d, want 1", n)
	}
	if n := r.Increment("a"); n != 2 {
		t.Fatalf("second increment = %d, want 2", n)
	}
	if n, under := r.Decrement("a"); n != 1 || under {
		t.Fatalf("decrement = (%d, %v), want (1, false)", n, under)
	}
	if n, under := r.Decrement("a"); n != 0 || under {
		t.Fatalf("decrement = (%d, %v), want (0, false)", n, under)
	}
	if n, under := r.Decrement("a"); n != 0 || !under {
		t.Fatalf("decrement past zero = (%d, %v), want (0, true)", n, under)
	}
	if n, under := r.Decrement("never-seen"); n != 0 || !under {
		t.Fatalf("decrement of absent id = (%d, %v), want (0, true)", n, under)
	}
	if got := r.Get("a").Refs; got != 0 {
		t.Fatalf("refs = %d after clamped decrement", got)
	}
}

func TestRegistrySetStatusClearsErrorOnConnect(t *testing.T) {
	r := NewRegistry()
	r.Increment("a")

	r.SetStatus("a", StatusFailed, errors.New("file is locked"))
	if got := r.Get("a"); got.Status != StatusFailed || got.LastError != "file is locked" {
		t.Fatalf("after failure got %+v", got)
	}

	// Moving to connecting keeps the previous error visible.
	r.SetStatus("a", StatusConnecting, nil)
	if got := r.Get("a").LastError; got != "file is locked" {
		t.Fatalf("connecting should keep last error, got %q", got)
	}

	r.SetStatus("a", StatusConnected, nil)
	if got := r.Get("a"); got.Status != StatusConnected || got.LastError != "" {
		t.Fatalf("connected should clear error, got %+v", got)
	}
}

func TestRegistryRemoveRefusesWithReferences(t *testing.T) {
	r := NewRegistry()
	r.Increment("a")
	if r.Remove("a") {
		t.Fatal("Remove should refuse while refs > 0")
	}
	r.Decrement("a")
	if !r.Remove("a") {
		t.Fatal("Remove should succeed at refs == 0")
	}
	if r.Has("a") {
		t.Fatal("entry still present after Remove")
	}
}

func TestRegistrySnapshotSorted(t *testing.T) {
	r := NewRegistry()
	r.Increment("b")
	r.Increment("a")
	r.Increment("a")
	r.SetStatus("a", StatusConnected, nil)
	r.SetStatus("b", StatusConnecting, nil)

	want := []Entry{
		{ID: "a", Refs: 2, Status: StatusConnected, Timer: TimerNone},
		{ID: "b", Refs: 1, Status: StatusConnecting, Timer: TimerNone},
	}
	if diff := cmp.Diff(want, r.Snapshot()); diff != "" {
		t.Fatalf("Snapshot mismatch (-want +got):\n%s", diff)
	}

	cleared := r.Clear()
	if len(cleared) != 2 || r.Len() != 0 {
		t.Fatalf("Clear returned %d entries, %d remain", len(cleared), r.Len())
	}
}
