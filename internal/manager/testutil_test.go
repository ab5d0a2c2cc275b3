package manager

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"streamd/internal/reactor"
	"streamd/pkg/types"
)

// recorder collects call names from workers and loop callbacks in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// fakeWorker is an instrumented Worker. On Start it posts a callback to the
// host loop, and optionally registers a ticking timer.
type fakeWorker struct {
	id      string
	host    Host
	rec     *recorder
	tick    time.Duration
	running atomic.Bool
	ticks   atomic.Int64

	startErr   error
	stopErr    error
	startPanic bool

	mu  sync.Mutex
	src reactor.Source
}

func (w *fakeWorker) ID() string    { return w.id }
func (w *fakeWorker) Running() bool { return w.running.Load() }

func (w *fakeWorker) Start() error {
	if w.startPanic {
		panic("start " + w.id)
	}
	if w.rec != nil {
		w.rec.add("start:" + w.id)
	}
	if w.startErr != nil {
		return w.startErr
	}
	if w.rec != nil {
		id := w.id
		_ = w.host.Loop().Post(func() { w.rec.add("event:" + id) })
	}
	if w.tick > 0 {
		src, err := w.host.Loop().AddTimer(w.tick, func() { w.ticks.Add(1) })
		if err != nil {
			return err
		}
		w.mu.Lock()
		w.src = src
		w.mu.Unlock()
	}
	w.running.Store(true)
	return nil
}

func (w *fakeWorker) Stop() error {
	if w.rec != nil {
		w.rec.add("stop:" + w.id)
	}
	w.mu.Lock()
	if w.src != nil {
		w.src.Cancel()
		w.src = nil
	}
	w.mu.Unlock()
	w.running.Store(false)
	return w.stopErr
}

// fakeFactory builds fakeWorkers and remembers them by id.
type fakeFactory struct {
	rec   *recorder
	tick  time.Duration
	calls atomic.Int32
	tweak func(*fakeWorker)

	mu      sync.Mutex
	workers map[string]*fakeWorker
}

func (f *fakeFactory) build(host Host, info types.RoverInfo) (Worker, error) {
	f.calls.Add(1)
	w := &fakeWorker{id: info.ID, host: host, rec: f.rec, tick: f.tick}
	if f.tweak != nil {
		f.tweak(w)
	}
	f.mu.Lock()
	if f.workers == nil {
		f.workers = map[string]*fakeWorker{}
	}
	f.workers[info.ID] = w
	f.mu.Unlock()
	return w, nil
}

func (f *fakeFactory) get(id string) *fakeWorker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.workers[id]
}

// countingEngine wraps real loops and tracks concurrent Dispatch calls.
type countingEngine struct {
	created   atomic.Int32
	closed    atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
	dispatchs atomic.Int32
}

func (e *countingEngine) Create() (reactor.Loop, error) {
	e.created.Add(1)
	return &countingLoop{Loop: reactor.NewLoop(), e: e}, nil
}

type countingLoop struct {
	reactor.Loop
	e *countingEngine
}

func (l *countingLoop) Dispatch() error {
	n := l.e.active.Add(1)
	defer l.e.active.Add(-1)
	l.e.dispatchs.Add(1)
	for {
		cur := l.e.maxActive.Load()
		if n <= cur || l.e.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	return l.Loop.Dispatch()
}

func (l *countingLoop) Close() error {
	l.e.closed.Add(1)
	return l.Loop.Close()
}

// stuckLoop ignores Break until release is closed.
type stuckLoop struct {
	reactor.Loop
	release chan struct{}
}

func (l *stuckLoop) Dispatch() error {
	<-l.release
	return nil
}

// failingEngine never produces a loop.
var failingEngine = reactor.EngineFunc(func() (reactor.Loop, error) {
	return nil, errors.New("event base unavailable")
})

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testLogger(w *syncBuffer) *zerolog.Logger {
	l := zerolog.New(w).Level(zerolog.DebugLevel)
	return &l
}

func info(id string, rovers ...string) types.ManagerInfo {
	mi := types.ManagerInfo{ID: id}
	for _, r := range rovers {
		mi.Rovers = append(mi.Rovers, types.RoverInfo{ID: r})
	}
	return mi
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", d)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// withinTimeout runs fn and fails if it does not return within d.
func withinTimeout(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	done := make(chan struct{})
	go func() { fn(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("%s did not return within %s", what, d)
	}
}
