// Package fleet owns every stream manager of the process.
package fleet

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"streamd/internal/manager"
	"streamd/internal/reactor"
	"streamd/pkg/types"
)

// Options controls how managers are built.
type Options struct {
	// Engine is shared by all managers; each manager creates its own loop.
	Engine        reactor.Engine
	Workers       manager.WorkerFactory
	Logger        *zerolog.Logger
	Publisher     manager.EventPublisher
	StreamEvent   manager.StreamEvent
	StopWarnAfter time.Duration
}

// Fleet is an immutable set of managers keyed by id.
type Fleet struct {
	managers map[string]*manager.Manager
	order    []string
	logger   zerolog.Logger
}

// New builds one manager per descriptor. Manager ids must be unique and
// non-empty. Managers whose loop could not be created are kept; they
// report Startable() == false.
func New(infos []types.ManagerInfo, opts Options) (*Fleet, error) {
	f := &Fleet{managers: make(map[string]*manager.Manager, len(infos)), logger: zerolog.Nop()}
	if opts.Logger != nil {
		f.logger = *opts.Logger
	}
	for _, info := range infos {
		if info.ID == "" {
			return nil, errors.New("fleet: manager id is empty")
		}
		if _, dup := f.managers[info.ID]; dup {
			return nil, fmt.Errorf("fleet: duplicate manager id %q", info.ID)
		}
		m := manager.NewWithConfig(manager.Config{
			Info:          info,
			Engine:        opts.Engine,
			Workers:       opts.Workers,
			Logger:        opts.Logger,
			Publisher:     opts.Publisher,
			StopWarnAfter: opts.StopWarnAfter,
		})
		if opts.StreamEvent != nil {
			m.SetStreamEvent(opts.StreamEvent)
		}
		f.managers[info.ID] = m
		f.order = append(f.order, info.ID)
	}
	sort.Strings(f.order)
	return f, nil
}

// Get returns the manager for id or manager.ErrNotFound.
func (f *Fleet) Get(id string) (*manager.Manager, error) {
	m, ok := f.managers[id]
	if !ok {
		return nil, manager.ErrNotFound(id)
	}
	return m, nil
}

// IDs returns manager ids in sorted order.
func (f *Fleet) IDs() []string { return append([]string(nil), f.order...) }

// StartAll starts every manager.
func (f *Fleet) StartAll() {
	for _, id := range f.order {
		f.managers[id].Start()
	}
	f.logger.Info().Int("managers", len(f.order)).Msg("fleet started")
}

// StopAll stops every manager. Each Stop blocks until that manager's
// dispatch goroutine has exited.
func (f *Fleet) StopAll() {
	for _, id := range f.order {
		f.managers[id].Stop()
	}
}

// Close destroys every manager.
func (f *Fleet) Close() error {
	var errs []error
	for _, id := range f.order {
		if err := f.managers[id].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	f.logger.Info().Int("managers", len(f.order)).Msg("fleet closed")
	return errors.Join(errs...)
}

// Managers returns the status of every manager.
func (f *Fleet) Managers() []types.ManagerStatus {
	out := make([]types.ManagerStatus, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.managers[id].Status())
	}
	return out
}

// Manager returns the status of one manager.
func (f *Fleet) Manager(id string) (types.ManagerStatus, error) {
	m, err := f.Get(id)
	if err != nil {
		return types.ManagerStatus{}, err
	}
	return m.Status(), nil
}

// Start starts one manager and returns its status.
func (f *Fleet) Start(id string) (types.ManagerStatus, error) {
	m, err := f.Get(id)
	if err != nil {
		return types.ManagerStatus{}, err
	}
	m.Start()
	return m.Status(), nil
}

// Stop stops one manager and returns its status.
func (f *Fleet) Stop(id string) (types.ManagerStatus, error) {
	m, err := f.Get(id)
	if err != nil {
		return types.ManagerStatus{}, err
	}
	m.Stop()
	return m.Status(), nil
}

// Ready reports whether every startable manager is running. Managers
// without a loop can never run and do not hold readiness back.
func (f *Fleet) Ready() bool {
	for _, id := range f.order {
		m := f.managers[id]
		if m.Startable() && !m.Running() {
			return false
		}
	}
	return true
}
