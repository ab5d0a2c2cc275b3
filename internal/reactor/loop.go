package reactor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const defaultQueueSize = 1024

type options struct {
	queueSize int
	logger    zerolog.Logger
}

// Option configures loops created by NewEngine or NewLoop.
type Option func(*options)

// WithQueueSize sets the number of callbacks that may be pending before Post blocks.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithLogger sets the logger used for recovered callback panics.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

type engine struct{ opts []Option }

// NewEngine returns the production Engine.
func NewEngine(opts ...Option) Engine { return engine{opts: opts} }

func (e engine) Create() (Loop, error) { return NewLoop(e.opts...), nil }

type loop struct {
	queue     chan func()
	brk       chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	running   atomic.Bool
	logger    zerolog.Logger

	mu      sync.Mutex
	sources map[*source]struct{}
}

// NewLoop creates a standalone loop.
func NewLoop(opts ...Option) Loop {
	o := options{queueSize: defaultQueueSize, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &loop{
		queue:   make(chan func(), o.queueSize),
		brk:     make(chan struct{}, 1),
		closed:  make(chan struct{}),
		logger:  o.logger,
		sources: make(map[*source]struct{}),
	}
}

func (l *loop) Dispatch() error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)
	for {
		// A pending break or close wins over queued callbacks.
		select {
		case <-l.closed:
			return ErrClosed
		case <-l.brk:
			return nil
		default:
		}
		select {
		case <-l.closed:
			return ErrClosed
		case <-l.brk:
			return nil
		case fn := <-l.queue:
			l.invoke(fn)
		}
	}
}

func (l *loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Str("panic", fmt.Sprint(r)).Msg("reactor callback panicked")
		}
	}()
	fn()
}

func (l *loop) Break() {
	select {
	case l.brk <- struct{}{}:
	default:
	}
}

func (l *loop) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.mu.Lock()
		srcs := make([]*source, 0, len(l.sources))
		for s := range l.sources {
			srcs = append(srcs, s)
		}
		l.mu.Unlock()
		for _, s := range srcs {
			s.Cancel()
		}
	})
	return nil
}

func (l *loop) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

func (l *loop) Post(fn func()) error {
	return l.post(nil, fn)
}

// post enqueues fn, giving up when the loop closes or done fires.
func (l *loop) post(done <-chan struct{}, fn func()) error {
	if fn == nil {
		return errors.New("reactor: nil callback")
	}
	if l.isClosed() {
		return ErrClosed
	}
	select {
	case l.queue <- fn:
		return nil
	case <-l.closed:
		return ErrClosed
	case <-done:
		return context.Canceled
	}
}

func (l *loop) AddTimer(interval time.Duration, fn func()) (Source, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("reactor: invalid timer interval %s", interval)
	}
	return l.AddSource(func(ctx context.Context, post PostFunc) {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := post(fn); err != nil {
					return
				}
			}
		}
	})
}

func (l *loop) AddSource(fn func(ctx context.Context, post PostFunc)) (Source, error) {
	if fn == nil {
		return nil, errors.New("reactor: nil source")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &source{cancel: cancel, done: make(chan struct{})}

	l.mu.Lock()
	if l.isClosed() {
		l.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	l.sources[s] = struct{}{}
	l.mu.Unlock()

	post := func(cb func()) error {
		// Callbacks queued before Cancel are dropped when they reach the loop.
		return l.post(ctx.Done(), func() {
			if ctx.Err() == nil {
				cb()
			}
		})
	}
	go func() {
		defer func() {
			l.mu.Lock()
			delete(l.sources, s)
			l.mu.Unlock()
			cancel()
			close(s.done)
		}()
		fn(ctx, post)
	}()
	return s, nil
}

type source struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *source) Cancel()               { s.cancel() }
func (s *source) Done() <-chan struct{} { return s.done }
