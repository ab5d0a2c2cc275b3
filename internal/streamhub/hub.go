// Package streamhub fans stream frames out to websocket subscribers. A Hub
// is attached to managers as their stream-event extension.
package streamhub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"streamd/pkg/types"
)

const (
	defaultBuffer    = 64
	defaultPingEvery = 30 * time.Second
	writeWait        = 5 * time.Second
)

// Hub delivers frames to subscribers without blocking the publisher: a
// subscriber whose buffer is full misses the frame.
type Hub struct {
	logger    zerolog.Logger
	buffer    int
	pingEvery time.Duration
	upgrader  websocket.Upgrader

	mu   sync.RWMutex
	subs map[*subscriber]struct{}

	dropped atomic.Uint64
}

type subscriber struct {
	managerID string
	ch        chan []byte
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l zerolog.Logger) Option { return func(h *Hub) { h.logger = l } }

// WithBuffer sets the per-subscriber buffer in frames.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithPingEvery sets the websocket keepalive interval.
func WithPingEvery(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingEvery = d
		}
	}
}

// New creates an empty hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		logger:    zerolog.Nop(),
		buffer:    defaultBuffer,
		pingEvery: defaultPingEvery,
		upgrader:  websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		subs:      make(map[*subscriber]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnStreamFrame implements manager.StreamEvent.
func (h *Hub) OnStreamFrame(f types.StreamFrame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.subs) == 0 {
		return
	}
	b, err := json.Marshal(f)
	if err != nil {
		h.logger.Error().Err(err).Msg("encode stream frame")
		return
	}
	for s := range h.subs {
		if s.managerID != "" && s.managerID != f.ManagerID {
			continue
		}
		select {
		case s.ch <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribe registers a subscriber for managerID ("" receives every
// manager). The returned cancel func unregisters it and closes the channel.
func (h *Hub) Subscribe(managerID string) (<-chan []byte, func()) {
	s := &subscriber{managerID: managerID, ch: make(chan []byte, h.buffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			h.mu.Unlock()
			close(s.ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of frames skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// ServeWS upgrades the request and streams frames for managerID until the
// client goes away or ctx is done.
func (h *Hub) ServeWS(ctx context.Context, w http.ResponseWriter, r *http.Request, managerID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	frames, cancel := h.Subscribe(managerID)
	defer cancel()

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		defer stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug().Err(err).Msg("websocket read")
				}
				return
			}
		}
	}()

	h.logger.Debug().Str("manager", managerID).Msg("stream subscriber connected")
	ping := time.NewTicker(h.pingEvery)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case msg, ok := <-frames:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
