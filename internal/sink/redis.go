// Package sink forwards stream frames to external brokers.
package sink

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"streamd/pkg/types"
)

const (
	defaultQueue   = 256
	publishTimeout = 2 * time.Second
)

// Publisher is the subset of *redis.Client used by Redis.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Redis publishes frames as JSON on "<channel>:<manager id>". Frames are
// queued and sent from a single goroutine so OnStreamFrame never blocks a
// reactor callback; when the queue is full the frame is dropped.
type Redis struct {
	client  Publisher
	channel string
	logger  zerolog.Logger
	queue   chan types.StreamFrame

	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// Option configures a Redis sink.
type Option func(*Redis)

// WithLogger sets the sink logger.
func WithLogger(l zerolog.Logger) Option { return func(r *Redis) { r.logger = l } }

// WithQueueSize sets the number of frames buffered before dropping.
func WithQueueSize(n int) Option {
	return func(r *Redis) {
		if n > 0 {
			r.queue = make(chan types.StreamFrame, n)
		}
	}
}

// Dial returns a client for addr. Connectivity is checked lazily.
func Dial(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// NewRedis starts a sink publishing through client.
func NewRedis(client Publisher, channel string, opts ...Option) *Redis {
	r := &Redis{
		client:  client,
		channel: channel,
		logger:  zerolog.Nop(),
		queue:   make(chan types.StreamFrame, defaultQueue),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.loop()
	return r
}

// OnStreamFrame implements manager.StreamEvent.
func (r *Redis) OnStreamFrame(f types.StreamFrame) {
	select {
	case <-r.done:
		return
	default:
	}
	select {
	case r.queue <- f:
	default:
		r.dropped.Add(1)
	}
}

func (r *Redis) loop() {
	defer close(r.exited)
	for {
		select {
		case f := <-r.queue:
			r.publish(f)
		case <-r.done:
			for {
				select {
				case f := <-r.queue:
					r.publish(f)
				default:
					return
				}
			}
		}
	}
}

func (r *Redis) publish(f types.StreamFrame) {
	b, err := json.Marshal(f)
	if err != nil {
		r.failed.Add(1)
		r.logger.Error().Err(err).Msg("encode stream frame")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.Channel(f.ManagerID), b).Err(); err != nil {
		// one line per failure would flood the log while redis is down
		if r.failed.Add(1)%100 == 1 {
			r.logger.Warn().Err(err).Str("manager", f.ManagerID).Msg("redis publish failed")
		}
		return
	}
	r.published.Add(1)
}

// Channel returns the channel name frames of managerID go to.
func (r *Redis) Channel(managerID string) string { return r.channel + ":" + managerID }

// Published returns the number of frames sent successfully.
func (r *Redis) Published() uint64 { return r.published.Load() }

// Dropped returns the number of frames dropped on a full queue.
func (r *Redis) Dropped() uint64 { return r.dropped.Load() }

// Failed returns the number of frames that could not be sent.
func (r *Redis) Failed() uint64 { return r.failed.Load() }

// Close flushes queued frames and stops the sink. It does not close the
// underlying client.
func (r *Redis) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	<-r.exited
	return nil
}
