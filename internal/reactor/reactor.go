package reactor

import (
	"context"
	"time"
)

// Engine creates event loops. Production code uses NewEngine; tests inject
// their own to simulate failures.
type Engine interface {
	Create() (Loop, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func() (Loop, error)

func (f EngineFunc) Create() (Loop, error) { return f() }

// PostFunc enqueues fn onto the loop.
type PostFunc func(fn func()) error

// Loop is a single event loop instance.
type Loop interface {
	// Dispatch processes posted callbacks until Break or Close. It returns
	// nil after a break and ErrClosed once the loop is closed.
	Dispatch() error
	// Break makes the running (or next) Dispatch return. Safe to call from
	// any goroutine.
	Break()
	// Close cancels every source and releases the loop. Idempotent.
	Close() error
	// Post enqueues fn to run on the dispatching goroutine.
	Post(fn func()) error
	// AddTimer invokes fn on the loop every interval until the source is canceled.
	AddTimer(interval time.Duration, fn func()) (Source, error)
	// AddSource runs fn on its own goroutine. fn must return once ctx is done;
	// post delivers work to the loop and fails after cancellation. Callbacks
	// still queued when the source is canceled or fn returns are dropped.
	AddSource(fn func(ctx context.Context, post PostFunc)) (Source, error)
}

// Source is a registration on a Loop.
type Source interface {
	// Cancel stops the source. It never blocks and may be called repeatedly.
	Cancel()
	// Done is closed once the source goroutine has returned.
	Done() <-chan struct{}
}
