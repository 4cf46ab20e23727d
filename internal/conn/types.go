package conn

import (
	"context"
	"time"
)

// ResourceID identifies a database profile. It is opaque to this package.
type ResourceID string

// Status is the connection state of a single resource.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusFailed     Status = "failed"
)

// TimerState reports whether a delayed close is pending for a resource.
type TimerState string

const (
	TimerNone  TimerState = "none"
	TimerArmed TimerState = "armed"
)

// Entry is a read-only view of one resource's bookkeeping.
type Entry struct {
	ID        ResourceID `json:"id"`
	Refs      int        `json:"refs"`
	Status    Status     `json:"status"`
	LastError string     `json:"last_error,omitempty"`
	Timer     TimerState `json:"timer"`
}

// Event is published whenever an entry changes.
type Event struct {
	Entry
	Time time.Time `json:"time"`
}

// Connector performs the physical open and close of a resource's
// connection. Open is called at most once per 0->1 transition (or retry after
// a failure); Close is called once after the keepalive window expires.
type Connector interface {
	Open(ctx context.Context, id ResourceID) error
	Close(ctx context.Context, id ResourceID) error
}

// ConnectorFuncs adapts a pair of functions to Connector.
type ConnectorFuncs struct {
	OpenFunc  func(ctx context.Context, id ResourceID) error
	CloseFunc func(ctx context.Context, id ResourceID) error
}

func (f ConnectorFuncs) Open(ctx context.Context, id ResourceID) error {
	if f.OpenFunc == nil {
		return nil
	}
	return f.OpenFunc(ctx, id)
}

func (f ConnectorFuncs) Close(ctx context.Context, id ResourceID) error {
	if f.CloseFunc == nil {
		return nil
	}
	return f.CloseFunc(ctx, id)
}
