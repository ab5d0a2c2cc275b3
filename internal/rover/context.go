package rover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"streamd/internal/manager"
	"streamd/internal/reactor"
	"streamd/pkg/types"
)

const (
	defaultReadBuffer     = 4096
	defaultReconnectEvery = time.Second
	defaultDialTimeout    = 5 * time.Second
	userAgent             = "streamd"
)

// DialFunc opens the upstream connection.
type DialFunc func(ctx context.Context, addr string) (net.Conn, error)

type options struct {
	dial           DialFunc
	reconnectEvery time.Duration
}

// Option tunes contexts built by Factory or NewContext.
type Option func(*options)

// WithDialer replaces the TCP dialer.
func WithDialer(d DialFunc) Option {
	return func(o *options) {
		if d != nil {
			o.dial = d
		}
	}
}

// WithReconnectEvery sets the minimum spacing between upstream connection attempts.
func WithReconnectEvery(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.reconnectEvery = d
		}
	}
}

func defaultDial(ctx context.Context, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: defaultDialTimeout}
	return d.DialContext(ctx, "tcp", addr)
}

// Factory returns a manager.WorkerFactory producing rover contexts.
func Factory(opts ...Option) manager.WorkerFactory {
	return func(host manager.Host, info types.RoverInfo) (manager.Worker, error) {
		return NewContext(host, info, opts...)
	}
}

// Context is the worker for one rover.
type Context struct {
	id      string
	info    types.RoverInfo
	host    manager.Host
	logger  zerolog.Logger
	dial    DialFunc
	limiter *rate.Limiter
	running atomic.Bool

	mu      sync.Mutex
	sources []reactor.Source

	frames     atomic.Uint64
	bytes      atomic.Uint64
	reconnects atomic.Uint64
	lastErr    atomic.Value // string
}

// NewContext validates info and builds a context. It registers nothing on
// the loop until Start.
func NewContext(host manager.Host, info types.RoverInfo, opts ...Option) (*Context, error) {
	if host == nil {
		return nil, errors.New("rover: nil host")
	}
	if info.ID == "" {
		return nil, errors.New("rover: empty id")
	}
	if info.Heartbeat.Duration < 0 {
		return nil, fmt.Errorf("rover %s: negative heartbeat", info.ID)
	}
	if info.Addr != "" {
		if _, _, err := net.SplitHostPort(info.Addr); err != nil {
			return nil, fmt.Errorf("rover %s: invalid addr %q: %w", info.ID, info.Addr, err)
		}
	}
	o := options{dial: defaultDial, reconnectEvery: defaultReconnectEvery}
	for _, opt := range opts {
		opt(&o)
	}
	if info.ReadBuffer <= 0 {
		info.ReadBuffer = defaultReadBuffer
	}
	c := &Context{
		id:      info.ID,
		info:    info,
		host:    host,
		logger:  host.Logger().With().Str("rover", info.ID).Logger(),
		dial:    o.dial,
		limiter: rate.NewLimiter(rate.Every(o.reconnectEvery), 1),
	}
	c.lastErr.Store("")
	return c, nil
}

func (c *Context) ID() string    { return c.id }
func (c *Context) Running() bool { return c.running.Load() }

// Start registers the context's sources on the host loop.
func (c *Context) Start() error {
	if c.running.Load() {
		return nil
	}
	loop := c.host.Loop()
	if loop == nil {
		return errors.New("rover: host has no loop")
	}

	var srcs []reactor.Source
	if hb := c.info.Heartbeat.Duration; hb > 0 {
		src, err := loop.AddTimer(hb, c.onHeartbeat)
		if err != nil {
			return fmt.Errorf("heartbeat: %w", err)
		}
		srcs = append(srcs, src)
	}
	if c.info.Addr != "" {
		src, err := loop.AddSource(c.stream)
		if err != nil {
			for _, s := range srcs {
				s.Cancel()
			}
			return fmt.Errorf("stream: %w", err)
		}
		srcs = append(srcs, src)
	}

	c.mu.Lock()
	c.sources = srcs
	c.mu.Unlock()
	c.running.Store(true)
	c.logger.Debug().Int("sources", len(srcs)).Msg("rover context started")
	c.emit(types.StreamFrame{Kind: types.FrameState, State: "started"})
	return nil
}

// Stop cancels every source. It does not wait for source goroutines.
func (c *Context) Stop() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	c.mu.Lock()
	srcs := c.sources
	c.sources = nil
	c.mu.Unlock()
	for _, s := range srcs {
		s.Cancel()
	}
	c.logger.Debug().Msg("rover context stopped")
	return nil
}

// Status reports counters for /managers.
func (c *Context) Status() types.RoverStatus {
	return types.RoverStatus{
		ID:         c.id,
		Running:    c.running.Load(),
		Addr:       c.info.Addr,
		Frames:     c.frames.Load(),
		Bytes:      c.bytes.Load(),
		Reconnects: c.reconnects.Load(),
		LastError:  c.lastErr.Load().(string),
	}
}

func (c *Context) setErr(err error) {
	if err != nil {
		c.lastErr.Store(err.Error())
	}
}

func (c *Context) emit(f types.StreamFrame) {
	ev := c.host.StreamEvent()
	if ev == nil {
		return
	}
	f.ManagerID = c.host.ID()
	f.RoverID = c.id
	if f.At.IsZero() {
		f.At = time.Now().UTC()
	}
	ev.OnStreamFrame(f)
}

func (c *Context) onHeartbeat() {
	c.emit(types.StreamFrame{Kind: types.FrameHeartbeat})
}

func (c *Context) onData(session string, data []byte) {
	c.frames.Add(1)
	c.bytes.Add(uint64(len(data)))
	roverFramesTotal.WithLabelValues(c.host.ID(), c.id).Inc()
	roverBytesTotal.WithLabelValues(c.host.ID(), c.id).Add(float64(len(data)))
	c.emit(types.StreamFrame{Kind: types.FrameData, Session: session, Data: data})
}

// stream is the upstream source goroutine. It reconnects until ctx is done.
func (c *Context) stream(ctx context.Context, post reactor.PostFunc) {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
		c.reconnects.Add(1)
		roverReconnectsTotal.WithLabelValues(c.host.ID(), c.id).Inc()

		conn, err := c.dial(ctx, c.info.Addr)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.setErr(err)
			c.logger.Warn().Err(err).Str("addr", c.info.Addr).Msg("rover dial failed")
			continue
		}
		session := uuid.NewString()
		err = c.session(ctx, conn, session, post)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.setErr(err)
		c.logger.Info().Err(err).Str("session", session).Msg("rover stream disconnected")
		if post(func() { c.emit(types.StreamFrame{Kind: types.FrameState, State: "disconnected", Session: session}) }) != nil {
			return
		}
	}
}

// session serves one connection until it fails or ctx is done.
func (c *Context) session(ctx context.Context, conn net.Conn, session string, post reactor.PostFunc) error {
	// Closing the connection unblocks Read once the source is canceled.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.logger.Info().Str("session", session).Str("addr", c.info.Addr).Msg("rover stream connected")
	if err := post(func() { c.emit(types.StreamFrame{Kind: types.FrameState, State: "connected", Session: session}) }); err != nil {
		return err
	}
	if mp := c.info.Mountpoint; mp != "" {
		req := fmt.Sprintf("GET /%s HTTP/1.0\r\nUser-Agent: %s\r\n\r\n", mp, userAgent)
		if _, err := io.WriteString(conn, req); err != nil {
			return fmt.Errorf("mountpoint request: %w", err)
		}
	}

	buf := make([]byte, c.info.ReadBuffer)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := append([]byte(nil), buf[:n]...)
			if perr := post(func() { c.onData(session, data) }); perr != nil {
				return perr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
}
