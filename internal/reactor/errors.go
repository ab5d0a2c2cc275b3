package reactor

import "errors"

var (
	// ErrClosed is returned by loop operations after Close.
	ErrClosed = errors.New("reactor: loop closed")
	// ErrRunning is returned when Dispatch is entered twice concurrently.
	ErrRunning = errors.New("reactor: loop already dispatching")
)
