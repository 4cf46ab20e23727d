// Package conn shares one physical database connection per profile between
// any number of views. Views call Acquire when they mount and Release when
// they unmount; the connection is opened on the first Acquire and closed only
// after the last Release plus a keepalive grace window.
package conn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/wethinkt/go-orbitaldb/internal/tuilog"
)

const (
	// DefaultKeepalive is the grace window between the last Release and the
	// physical close.
	DefaultKeepalive = time.Second

	// DefaultCloseTimeout bounds a keepalive-triggered Connector.Close.
	DefaultCloseTimeout = 10 * time.Second

	// DefaultOpenTimeout bounds a Connector.Open, including the wait for a
	// previous close of the same resource.
	DefaultOpenTimeout = 30 * time.Second

	shutdownConcurrency = 4
)

// Config configures a Manager. Zero values select the defaults.
type Config struct {
	Keepalive    time.Duration
	CloseTimeout time.Duration
	OpenTimeout  time.Duration
	Clock        clock.Clock
}

// openCall is one in-flight Connector.Open shared by every concurrent acquirer.
type openCall struct {
	done chan struct{}
	err  error
}

// Manager coordinates the Registry and Scheduler and drives the Connector.
// All bookkeeping happens under mu; only Connector calls run outside it.
type Manager struct {
	connector    Connector
	keepalive    time.Duration
	closeTimeout time.Duration
	openTimeout  time.Duration
	clock        clock.Clock

	mu       sync.Mutex
	registry *Registry
	sched    *Scheduler
	inflight map[ResourceID]*openCall
	closing  map[ResourceID]chan struct{}
	closed   bool

	events *eventHub
}

// NewManager returns a Manager that opens and closes connections through c.
func NewManager(c Connector, cfg Config) *Manager {
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = DefaultKeepalive
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = DefaultCloseTimeout
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Manager{
		connector:    c,
		keepalive:    cfg.Keepalive,
		closeTimeout: cfg.CloseTimeout,
		openTimeout:  cfg.OpenTimeout,
		clock:        cfg.Clock,
		registry:     NewRegistry(),
		sched:        NewScheduler(cfg.Clock),
		inflight:     make(map[ResourceID]*openCall),
		closing:      make(map[ResourceID]chan struct{}),
		events:       newEventHub(),
	}
}

// Keepalive returns the configured grace window.
func (m *Manager) Keepalive() time.Duration {
	return m.keepalive
}

// Acquire takes a reference on id and makes sure its connection is open.
//
// The reference is kept whatever the outcome, so every Acquire must be paired
// with a Release. Only the caller that moves the resource out of idle or
// failed invokes Connector.Open; concurrent callers wait for that open and
// observe its result. The open itself runs detached from every caller's ctx,
// bounded by Config.OpenTimeout. A caller whose ctx ends, the opener
// included, returns ctx.Err() but still holds its reference.
func (m *Manager) Acquire(ctx context.Context, id ResourceID) (Status, error) {
	start := time.Now()
	defer func() { acquireDurationSeconds.Observe(time.Since(start).Seconds()) }()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return StatusIdle, ErrManagerClosed
	}

	if m.sched.Cancel(id) {
		keepaliveCancelledTotal.Inc()
		tuilog.Log.Debug("Keepalive close cancelled by acquire", "profile", id)
	}
	refs := m.registry.Increment(id)
	entry := m.registry.Get(id)

	switch entry.Status {
	case StatusConnected:
		m.notifyLocked(id)
		m.mu.Unlock()
		tuilog.Log.Debug("Acquired open connection", "profile", id, "refs", refs)
		return StatusConnected, nil

	case StatusConnecting:
		call := m.inflight[id]
		m.notifyLocked(id)
		m.mu.Unlock()
		tuilog.Log.Debug("Waiting for in-flight open", "profile", id, "refs", refs)
		return m.wait(ctx, call)
	}

	// idle or failed: this caller performs the open.
	call := &openCall{done: make(chan struct{})}
	m.inflight[id] = call
	m.registry.SetStatus(id, StatusConnecting, nil)
	prevClose := m.closing[id]
	m.notifyLocked(id)
	m.mu.Unlock()

	tuilog.Log.Info("Opening connection", "profile", id, "retry", entry.Status == StatusFailed)
	go m.open(context.WithoutCancel(ctx), id, call, prevClose)
	return m.wait(ctx, call)
}

// open waits out any close still running for id, opens it and settles call.
func (m *Manager) open(ctx context.Context, id ResourceID, call *openCall, prevClose <-chan struct{}) {
	ctx, cancel := context.WithTimeout(ctx, m.openTimeout)
	defer cancel()

	var err error
	if prevClose != nil {
		select {
		case <-prevClose:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err == nil {
		err = m.connector.Open(ctx, id)
	}
	m.settle(id, call, err)
}

func (m *Manager) wait(ctx context.Context, call *openCall) (Status, error) {
	select {
	case <-call.done:
		if call.err != nil {
			return StatusFailed, call.err
		}
		return StatusConnected, nil
	case <-ctx.Done():
		return StatusConnecting, ctx.Err()
	}
}

// settle records the outcome of an open and wakes its waiters.
func (m *Manager) settle(id ResourceID, call *openCall, err error) {
	m.mu.Lock()

	delete(m.inflight, id)
	if m.closed {
		// Shutdown raced the open; the registry is already cleared.
		if err != nil {
			call.err = fmt.Errorf("%w: profile %s: %w", ErrOpenFailed, id, err)
		}
		close(call.done)
		m.mu.Unlock()
		if err == nil {
			openConnections.Inc()
			m.physicalClose(id)
		}
		return
	}

	if err != nil {
		call.err = fmt.Errorf("%w: profile %s: %w", ErrOpenFailed, id, err)
		m.registry.SetStatus(id, StatusFailed, err)
		opensTotal.WithLabelValues("error").Inc()
		tuilog.Log.Error("Open failed", "profile", id, "error", err)
	} else {
		m.registry.SetStatus(id, StatusConnected, nil)
		opensTotal.WithLabelValues("ok").Inc()
		openConnections.Inc()
		tuilog.Log.Info("Connection open", "profile", id)
	}
	close(call.done)

	if m.registry.Get(id).Refs == 0 {
		// Every holder released while the open was in flight.
		m.armLocked(id)
	}
	m.notifyLocked(id)
	m.mu.Unlock()
}

// Release drops a reference on id. When the count reaches zero a delayed
// close is armed; an Acquire before it fires cancels it.
func (m *Manager) Release(id ResourceID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	refs, underflow := m.registry.Decrement(id)
	if underflow {
		refcountUnderflowsTotal.Inc()
		tuilog.Log.Warn("Release without matching acquire", "profile", id, "error", ErrRefCountUnderflow)
		return
	}
	if refs == 0 {
		m.armLocked(id)
	}
	m.notifyLocked(id)
	tuilog.Log.Debug("Released connection", "profile", id, "refs", refs)
}

func (m *Manager) armLocked(id ResourceID) {
	m.sched.Schedule(id, m.keepalive, m.keepaliveExpired)
}

// keepaliveExpired runs when a grace window elapses. All conditions are
// re-read here: an acquire, a newer timer or an in-flight open since the
// timer was armed each veto the close.
func (m *Manager) keepaliveExpired(id ResourceID) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	entry := m.registry.Get(id)
	if !m.registry.Has(id) || entry.Refs > 0 || m.inflight[id] != nil || m.sched.State(id) == TimerArmed {
		m.mu.Unlock()
		return
	}

	needsClose := entry.Status == StatusConnected
	m.registry.Remove(id)
	var done chan struct{}
	if needsClose {
		done = make(chan struct{})
		m.closing[id] = done
	}
	m.notifyLocked(id)
	m.mu.Unlock()

	if !needsClose {
		tuilog.Log.Debug("Dropped unused entry", "profile", id, "status", entry.Status)
		return
	}

	m.physicalClose(id)

	m.mu.Lock()
	delete(m.closing, id)
	close(done)
	m.mu.Unlock()
}

func (m *Manager) physicalClose(id ResourceID) {
	ctx, cancel := context.WithTimeout(context.Background(), m.closeTimeout)
	defer cancel()

	err := m.connector.Close(ctx, id)
	openConnections.Dec()
	if err != nil {
		closesTotal.WithLabelValues("error").Inc()
		tuilog.Log.Error("Close failed", "profile", id, "error", fmt.Errorf("%w: %w", ErrCloseFailed, err))
		return
	}
	closesTotal.WithLabelValues("ok").Inc()
	tuilog.Log.Info("Connection closed", "profile", id)
}

func (m *Manager) notifyLocked(id ResourceID) {
	entry := m.registry.Get(id)
	entry.Timer = m.sched.State(id)
	m.events.publish(Event{Entry: entry, Time: m.clock.Now()})
}

// Status returns the bookkeeping for id; an untracked id is idle.
func (m *Manager) Status(id ResourceID) Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.registry.Get(id)
	entry.Timer = m.sched.State(id)
	return entry
}

// Snapshot returns every tracked resource sorted by id.
func (m *Manager) Snapshot() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.registry.Snapshot()
	for i := range entries {
		entries[i].Timer = m.sched.State(entries[i].ID)
	}
	return entries
}

// Subscribe returns a channel of status changes. Call the returned function
// to unsubscribe. The channel is closed when the Manager closes.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	return m.events.subscribe()
}

// Close stops all timers and closes every open connection, waiting for any
// keepalive close already in progress. Later Acquire calls fail with
// ErrManagerClosed.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.sched.Stop()

	var open []ResourceID
	for _, entry := range m.registry.Clear() {
		if entry.Status == StatusConnected {
			open = append(open, entry.ID)
		}
	}
	var pending []chan struct{}
	for _, ch := range m.closing {
		pending = append(pending, ch)
	}
	m.mu.Unlock()

	var errs error
waitPending:
	for _, ch := range pending {
		select {
		case <-ch:
		case <-ctx.Done():
			errs = fmt.Errorf("wait for keepalive close: %w", ctx.Err())
			break waitPending
		}
	}

	var (
		errMu sync.Mutex
		g     errgroup.Group
	)
	g.SetLimit(shutdownConcurrency)
	for _, id := range open {
		g.Go(func() error {
			err := m.connector.Close(ctx, id)
			openConnections.Dec()
			if err != nil {
				closesTotal.WithLabelValues("error").Inc()
				errMu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%w: profile %s: %w", ErrCloseFailed, id, err))
				errMu.Unlock()
				return nil
			}
			closesTotal.WithLabelValues("ok").Inc()
			return nil
		})
	}
	g.Wait()

	m.events.close()
	tuilog.Log.Info("Connection manager closed", "closed", len(open), "error", errs)
	return errs
}
