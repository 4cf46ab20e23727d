package conn

import "errors"

var (
	// ErrOpenFailed wraps failures returned by Connector.Open. Every caller
	// waiting on the same open receives it.
	ErrOpenFailed = errors.New("open connection failed")

	// ErrCloseFailed wraps failures returned by Connector.Close. It is only
	// logged and, during shutdown, aggregated into the Close result.
	ErrCloseFailed = errors.New("close connection failed")

	// ErrRefCountUnderflow marks a Release without a matching Acquire.
	ErrRefCountUnderflow = errors.New("reference count underflow")

	// ErrManagerClosed is returned by Acquire after Close.
	ErrManagerClosed = errors.New("connection manager closed")
)
