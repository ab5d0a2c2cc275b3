package manager

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"streamd/internal/reactor"
	"streamd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultStopWarnAfter = 5 * time.Second
)

// Config encapsulates everything a Manager is constructed from.
type Config struct {
	Info types.ManagerInfo
	// Engine creates the reactor loop. Defaults to reactor.NewEngine().
	Engine reactor.Engine
	// Workers builds one worker per rover. Defaults to idle workers that
	// register nothing.
	Workers WorkerFactory
	// Logger is the diagnostics sink; defaults to the global zerolog logger.
	Logger *zerolog.Logger
	// Publisher receives lifecycle events; defaults to a no-op.
	Publisher EventPublisher
	// StopWarnAfter is the interval at which Stop logs while it is still
	// waiting for the dispatch goroutine. Negative disables the warning.
	StopWarnAfter time.Duration
}

// New constructs a Manager with package defaults.
func New(info types.ManagerInfo) *Manager {
	return NewWithConfig(Config{Info: info})
}

// NewWithConfig constructs a Manager from Config.
//
// Failing to create the loop is not fatal: the manager is returned in a
// state where Start is a permanent no-op and Err reports the cause.
func NewWithConfig(cfg Config) *Manager {
	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	m := &Manager{
		id:        cfg.Info.ID,
		info:      cfg.Info,
		logger:    base.With().Str("manager", cfg.Info.ID).Logger(),
		publisher: cfg.Publisher,
		state:     StateStopped,
		workers:   make(map[string]Worker),
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	switch {
	case cfg.StopWarnAfter == 0:
		m.stopWarnAfter = defaultStopWarnAfter
	case cfg.StopWarnAfter > 0:
		m.stopWarnAfter = cfg.StopWarnAfter
	}
	engine := cfg.Engine
	if engine == nil {
		engine = reactor.NewEngine(reactor.WithLogger(m.logger))
	}
	factory := cfg.Workers
	if factory == nil {
		factory = newIdleWorker
	}
	m.init(engine, factory)
	return m
}
