package tui

import (
	"context"
	"errors"
	"sync"

	tea "charm.land/bubbletea/v2"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
)

// Connections is the connection manager as seen by views. *conn.Manager
// satisfies it.
type Connections interface {
	Acquire(ctx context.Context, id conn.ResourceID) (conn.Status, error)
	Release(id conn.ResourceID)
	Status(id conn.ResourceID) conn.Entry
	Subscribe() (<-chan conn.Event, func())
}

var errLeaseReleased = errors.New("view closed before its connection was acquired")

// lease is one view's claim on a profile's connection. acquire runs off the
// UI goroutine; release may run at any time and issues exactly one Release
// for an Acquire that was started, waiting for it to return if needed.
type lease struct {
	conns  Connections
	id     conn.ResourceID
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	started  bool
	returned bool
	released bool
}

func newLease(conns Connections, id conn.ResourceID) *lease {
	ctx, cancel := context.WithCancel(context.Background())
	return &lease{conns: conns, id: id, ctx: ctx, cancel: cancel}
}

// leaseAcquiredMsg reports the outcome of a view's Acquire.
type leaseAcquiredMsg struct {
	ID     conn.ResourceID
	Status conn.Status
	Err    error

	from *lease
}

func (l *lease) acquireCmd() tea.Cmd {
	return func() tea.Msg {
		status, err := l.acquire()
		return leaseAcquiredMsg{ID: l.id, Status: status, Err: err, from: l}
	}
}

func (l *lease) acquire() (conn.Status, error) {
	l.mu.Lock()
	if l.released || l.started {
		l.mu.Unlock()
		return conn.StatusIdle, errLeaseReleased
	}
	l.started = true
	l.mu.Unlock()

	status, err := l.conns.Acquire(l.ctx, l.id)

	l.mu.Lock()
	l.returned = true
	releaseNow := l.released
	l.mu.Unlock()

	if releaseNow {
		l.conns.Release(l.id)
	}
	return status, err
}

func (l *lease) release() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	releaseNow := l.started && l.returned
	l.mu.Unlock()

	l.cancel()
	if releaseNow {
		l.conns.Release(l.id)
	}
}
