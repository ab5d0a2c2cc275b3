package manager

import (
	"time"

	"github.com/google/uuid"
)

// Start spawns the dispatch goroutine. It returns without waiting for the
// workers to start. Calling Start on a running, closed or non-startable
// manager is a no-op.
func (m *Manager) Start() {
	m.life.Lock()
	defer m.life.Unlock()

	m.mu.RLock()
	state, closed := m.state, m.closed
	m.mu.RUnlock()
	if state == StateRunning {
		m.logger.Debug().Msg("stream manager already running")
		return
	}
	if closed {
		m.logger.Warn().Msg("stream manager closed, ignoring start")
		return
	}

	m.logger.Info().Msg("stream manager starting")
	if m.loop == nil {
		m.logger.Error().Err(m.initErr).Msg("stream manager has no reactor, not starting")
		return
	}

	run := &dispatchRun{id: uuid.NewString(), startedAt: time.Now(), done: make(chan struct{})}
	pub := m.publisher
	pub.Publish(Event{Name: EventStartBegin, ManagerID: m.id, Fields: map[string]any{"run": run.id}})

	m.mu.Lock()
	m.state = StateRunning
	m.cur = run
	m.mu.Unlock()

	go m.run(run, pub)

	managerRunning.WithLabelValues(m.id).Set(1)
	managerStartsTotal.WithLabelValues(m.id).Inc()
	m.logger.Info().Str("run", run.id).Msg("stream manager started")
	pub.Publish(Event{Name: EventStartDone, ManagerID: m.id, Fields: map[string]any{"run": run.id}})
}

// run is the dispatch goroutine: start every worker, then dispatch until
// the loop is broken or closed.
func (m *Manager) run(run *dispatchRun, pub EventPublisher) {
	defer close(run.done)
	logger := m.logger.With().Str("run", run.id).Logger()

	for _, id := range m.order {
		started, err := run.startWorker(m.workers[id])
		if !started {
			logger.Debug().Str("rover", id).Msg("stop requested, skipping remaining rover contexts")
			break
		}
		if err != nil {
			logger.Error().Err(err).Str("rover", id).Msg("rover context start failed")
			m.recordErr(err)
			workerErrorsTotal.WithLabelValues(m.id, id, "start").Inc()
			pub.Publish(Event{Name: EventWorkerStartError, ManagerID: m.id, RoverID: id, Fields: map[string]any{"error": err.Error()}})
		}
	}

	// Dispatch runs even after an early stop so the pending break is consumed.
	err := m.loop.Dispatch()
	fields := map[string]any{"run": run.id}
	if err != nil {
		logger.Error().Err(err).Msg("reactor dispatch exited with error")
		m.recordErr(err)
		fields["error"] = err.Error()
	} else {
		logger.Debug().Msg("reactor dispatch exited")
	}
	pub.Publish(Event{Name: EventDispatchExit, ManagerID: m.id, Fields: fields})
}

// Stop breaks the loop, stops every worker and blocks until the dispatch
// goroutine has exited. Calling Stop on a stopped manager is a no-op.
//
// The wait is unbounded. While it lasts, a warning is logged every
// StopWarnAfter and the stop_waiting gauge is raised.
func (m *Manager) Stop() {
	m.life.Lock()
	defer m.life.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	m.mu.RLock()
	state, run := m.state, m.cur
	m.mu.RUnlock()
	if state != StateRunning {
		return
	}

	logger := m.logger.With().Str("run", run.id).Logger()
	logger.Info().Msg("stream manager stopping")
	m.publisher.Publish(Event{Name: EventStopBegin, ManagerID: m.id, Fields: map[string]any{"run": run.id}})

	run.beginStop()
	m.loop.Break()

	for _, id := range m.order {
		if err := callSafely(m.workers[id].Stop); err != nil {
			logger.Error().Err(err).Str("rover", id).Msg("rover context stop failed")
			m.recordErr(err)
			workerErrorsTotal.WithLabelValues(m.id, id, "stop").Inc()
			m.publisher.Publish(Event{Name: EventWorkerStopError, ManagerID: m.id, RoverID: id, Fields: map[string]any{"error": err.Error()}})
		}
	}

	m.wait(run.done)

	m.mu.Lock()
	m.state = StateStopped
	m.cur = nil
	m.mu.Unlock()

	managerRunning.WithLabelValues(m.id).Set(0)
	managerStopsTotal.WithLabelValues(m.id).Inc()
	logger.Info().Msg("stream manager stopped")
	m.publisher.Publish(Event{Name: EventStopDone, ManagerID: m.id, Fields: map[string]any{"run": run.id}})
}

func (m *Manager) wait(done <-chan struct{}) {
	if m.stopWarnAfter <= 0 {
		<-done
		return
	}
	select {
	case <-done:
		return
	default:
	}

	managerStopWaiting.WithLabelValues(m.id).Set(1)
	defer managerStopWaiting.WithLabelValues(m.id).Set(0)
	start := time.Now()
	t := time.NewTicker(m.stopWarnAfter)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			m.logger.Warn().Dur("waited", time.Since(start)).Msg("still waiting for reactor dispatch to exit")
		}
	}
}

// Close stops the manager if needed and releases the loop. After Close the
// manager can no longer be started. Safe to call more than once.
func (m *Manager) Close() error {
	m.life.Lock()
	defer m.life.Unlock()
	m.stopLocked()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.loop == nil {
		return nil
	}
	return m.loop.Close()
}
