package manager

import (
	"sync/atomic"

	"streamd/pkg/types"
)

// idleWorker satisfies the Worker contract without registering any source.
// It is used when no WorkerFactory is configured.
type idleWorker struct {
	id      string
	running atomic.Bool
}

func newIdleWorker(_ Host, info types.RoverInfo) (Worker, error) {
	return &idleWorker{id: info.ID}, nil
}

func (w *idleWorker) ID() string     { return w.id }
func (w *idleWorker) Running() bool  { return w.running.Load() }
func (w *idleWorker) Start() error   { w.running.Store(true); return nil }
func (w *idleWorker) Stop() error    { w.running.Store(false); return nil }
