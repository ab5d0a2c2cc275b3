package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"streamd/internal/reactor"
	"streamd/pkg/types"
)

// Manager owns a reactor loop and the rover workers registered on it. The
// loop is dispatched on a background goroutine between Start and Stop.
type Manager struct {
	id   string
	info types.ManagerInfo

	logger        zerolog.Logger
	publisher     EventPublisher
	stopWarnAfter time.Duration

	// Set once in init; read-only afterwards.
	loop    reactor.Loop
	initErr error
	workers map[string]Worker
	order   []string

	// life serializes Start, Stop and Close.
	life sync.Mutex

	mu      sync.RWMutex
	state   State
	closed  bool
	cur     *dispatchRun
	lastErr string

	evMu     sync.RWMutex
	streamev StreamEvent
}

// dispatchRun is one Start..Stop cycle of the dispatch goroutine.
type dispatchRun struct {
	id        string
	startedAt time.Time
	done      chan struct{}

	// gate orders worker starts against Stop: once stopping is set no
	// further worker is started.
	gate     sync.Mutex
	stopping bool
}

// beginStop closes the gate. Any worker Start in progress completes first.
func (r *dispatchRun) beginStop() {
	r.gate.Lock()
	r.stopping = true
	r.gate.Unlock()
}

// startWorker starts w unless a stop has begun.
func (r *dispatchRun) startWorker(w Worker) (started bool, err error) {
	r.gate.Lock()
	defer r.gate.Unlock()
	if r.stopping {
		return false, nil
	}
	return true, callSafely(w.Start)
}

func (m *Manager) init(engine reactor.Engine, factory WorkerFactory) {
	loop, err := engine.Create()
	if err == nil && loop == nil {
		err = errNilLoop
	}
	if err != nil {
		m.initErr = reactorUnavailableError{id: m.id, err: err}
		m.lastErr = m.initErr.Error()
		m.logger.Error().Err(err).Msg("stream manager init failed")
		m.publisher.Publish(Event{Name: EventInitFailed, ManagerID: m.id, Fields: map[string]any{"error": err.Error()}})
		return
	}
	m.loop = loop

	for _, rover := range m.info.Rovers {
		if _, dup := m.workers[rover.ID]; dup {
			m.logger.Warn().Str("rover", rover.ID).Msg("duplicate rover id, last descriptor wins")
		}
		w, err := factory(m, rover)
		if err != nil {
			m.logger.Error().Err(err).Str("rover", rover.ID).Msg("rover context construction failed")
			continue
		}
		m.workers[rover.ID] = w
	}
	m.order = sortedIDs(m.workers)
	m.logger.Debug().Int("rovers", len(m.order)).Msg("stream manager initialized")
}

// ID returns the immutable manager identifier.
func (m *Manager) ID() string { return m.id }

// Loop returns the manager's reactor loop, or nil if it could not be created.
func (m *Manager) Loop() reactor.Loop { return m.loop }

// Logger returns the manager-scoped logger.
func (m *Manager) Logger() zerolog.Logger { return m.logger }

// Err reports why the manager cannot start, or nil.
func (m *Manager) Err() error { return m.initErr }

// Workers returns the workers in deterministic (id) order.
func (m *Manager) Workers() []Worker {
	out := make([]Worker, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.workers[id])
	}
	return out
}

// Worker looks up a worker by rover id.
func (m *Manager) Worker(id string) (Worker, bool) {
	w, ok := m.workers[id]
	return w, ok
}

// StreamEvent returns the attached stream-event extension, or nil.
func (m *Manager) StreamEvent() StreamEvent {
	m.evMu.RLock()
	defer m.evMu.RUnlock()
	return m.streamev
}

// SetStreamEvent attaches (or with nil, detaches) the stream-event extension.
// It is independent of the lifecycle and may be called at any time.
func (m *Manager) SetStreamEvent(ev StreamEvent) {
	m.evMu.Lock()
	m.streamev = ev
	m.evMu.Unlock()
}

// SetEventPublisher installs a lifecycle event publisher. Call before Start.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.life.Lock()
	defer m.life.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Running reports whether the manager is in StateRunning.
func (m *Manager) Running() bool { return m.State() == StateRunning }

// Startable reports whether the manager has a loop and has not been closed.
func (m *Manager) Startable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loop != nil && !m.closed
}

func (m *Manager) recordErr(err error) {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
}
