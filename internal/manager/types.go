package manager

import (
	"github.com/rs/zerolog"

	"streamd/internal/reactor"
	"streamd/pkg/types"
)

// State represents the lifecycle state of a manager.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Worker is one rover context driven by a Manager.
//
// Start is called on the dispatch goroutine before the loop starts
// dispatching, so workers register their sources on the same goroutine that
// will run their callbacks. Stop may be called from any goroutine while the
// loop is still draining and must not block indefinitely.
type Worker interface {
	ID() string
	Start() error
	Stop() error
	Running() bool
}

// StatusReporter is implemented by workers that can describe themselves for /managers.
type StatusReporter interface {
	Status() types.RoverStatus
}

// Host is the view of its Manager a Worker receives. It is a lookup
// relation only: workers must not drive the manager lifecycle through it.
type Host interface {
	ID() string
	Loop() reactor.Loop
	StreamEvent() StreamEvent
	Logger() zerolog.Logger
}

// WorkerFactory builds the worker for one rover descriptor. It must not
// start any I/O.
type WorkerFactory func(host Host, info types.RoverInfo) (Worker, error)

// StreamEvent receives frames produced by workers. Implementations are called
// from the dispatch goroutine and should not block.
type StreamEvent interface {
	OnStreamFrame(types.StreamFrame)
}

// StreamEventFunc adapts a function to StreamEvent.
type StreamEventFunc func(types.StreamFrame)

func (f StreamEventFunc) OnStreamFrame(fr types.StreamFrame) { f(fr) }

// MultiStreamEvent fans a frame out to every non-nil receiver in order.
func MultiStreamEvent(evs ...StreamEvent) StreamEvent {
	out := make(multiStreamEvent, 0, len(evs))
	for _, ev := range evs {
		if ev != nil {
			out = append(out, ev)
		}
	}
	return out
}

type multiStreamEvent []StreamEvent

func (m multiStreamEvent) OnStreamFrame(fr types.StreamFrame) {
	for _, ev := range m {
		ev.OnStreamFrame(fr)
	}
}
