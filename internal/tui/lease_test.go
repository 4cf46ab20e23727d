package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
)

// fakeConns counts Acquire and Release calls per id.
type fakeConns struct {
	mu       sync.Mutex
	acquires map[conn.ResourceID]int
	releases map[conn.ResourceID]int
	gate     chan struct{} // when set, Acquire blocks until closed or ctx ends
	events   chan conn.Event
}

func newFakeConns() *fakeConns {
	return &fakeConns{
		acquires: make(map[conn.ResourceID]int),
		releases: make(map[conn.ResourceID]int),
		events:   make(chan conn.Event, 16),
	}
}

func (f *fakeConns) Acquire(ctx context.Context, id conn.ResourceID) (conn.Status, error) {
	f.mu.Lock()
	f.acquires[id]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return conn.StatusConnecting, ctx.Err()
		}
	}
	return conn.StatusConnected, nil
}

func (f *fakeConns) Release(id conn.ResourceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases[id]++
}

func (f *fakeConns) Status(id conn.ResourceID) conn.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	refs := f.acquires[id] - f.releases[id]
	e := conn.Entry{ID: id, Refs: refs, Status: conn.StatusIdle}
	if refs > 0 {
		e.Status = conn.StatusConnected
	}
	return e
}

func (f *fakeConns) Subscribe() (<-chan conn.Event, func()) {
	return f.events, func() {}
}

func (f *fakeConns) counts(id conn.ResourceID) (acquires, releases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquires[id], f.releases[id]
}

func TestLeaseAcquireThenRelease(t *testing.T) {
	fc := newFakeConns()
	l := newLease(fc, "p1")

	if _, err := l.acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	l.release()
	l.release()

	if a, r := fc.counts("p1"); a != 1 || r != 1 {
		t.Fatalf("acquires=%d releases=%d, want 1/1", a, r)
	}
}

func TestLeaseReleaseBeforeAcquireSkipsBoth(t *testing.T) {
	fc := newFakeConns()
	l := newLease(fc, "p1")

	l.release()
	if _, err := l.acquire(); !errors.Is(err, errLeaseReleased) {
		t.Fatalf("acquire after release error = %v", err)
	}
	if a, r := fc.counts("p1"); a != 0 || r != 0 {
		t.Fatalf("acquires=%d releases=%d, want 0/0", a, r)
	}
}

func TestLeaseReleaseDuringAcquireReleasesOnReturn(t *testing.T) {
	fc := newFakeConns()
	fc.gate = make(chan struct{})
	l := newLease(fc, "p1")

	done := make(chan struct{})
	go func() {
		l.acquire()
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if a, _ := fc.counts("p1"); a == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("acquire never started")
		}
		time.Sleep(time.Millisecond)
	}

	l.release()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("release did not cancel the pending acquire")
	}
	if a, r := fc.counts("p1"); a != 1 || r != 1 {
		t.Fatalf("acquires=%d releases=%d, want 1/1", a, r)
	}
}

func TestLeaseAcquireCmdReportsOutcome(t *testing.T) {
	fc := newFakeConns()
	l := newLease(fc, "p1")

	msg := l.acquireCmd()()
	got, ok := msg.(leaseAcquiredMsg)
	if !ok {
		t.Fatalf("msg = %T, want leaseAcquiredMsg", msg)
	}
	if got.ID != "p1" || got.Status != conn.StatusConnected || got.Err != nil {
		t.Errorf("msg = %+v", got)
	}
}
