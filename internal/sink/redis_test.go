package sink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamd/pkg/types"
)

type message struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	mu    sync.Mutex
	msgs  []message
	err   error
	block chan struct{}
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, msg any) *redis.IntCmd {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return redis.NewIntResult(0, p.err)
	}
	p.msgs = append(p.msgs, message{channel: channel, payload: msg.([]byte)})
	return redis.NewIntResult(1, nil)
}

func (p *fakePublisher) messages() []message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]message(nil), p.msgs...)
}

func TestRedisPublishesJSONPerManager(t *testing.T) {
	p := &fakePublisher{}
	r := NewRedis(p, "streamd:frames")
	r.OnStreamFrame(types.StreamFrame{ManagerID: "m1", RoverID: "r1", Kind: types.FrameData, Data: []byte("abc")})
	r.OnStreamFrame(types.StreamFrame{ManagerID: "m2", RoverID: "r9", Kind: types.FrameState, State: "started"})
	require.NoError(t, r.Close())

	msgs := p.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "streamd:frames:m1", msgs[0].channel)
	assert.Equal(t, "streamd:frames:m2", msgs[1].channel)
	var f types.StreamFrame
	require.NoError(t, json.Unmarshal(msgs[0].payload, &f))
	assert.Equal(t, "r1", f.RoverID)
	assert.Equal(t, []byte("abc"), f.Data)
	assert.EqualValues(t, 2, r.Published())
}

func TestRedisCountsFailures(t *testing.T) {
	p := &fakePublisher{err: errors.New("connection refused")}
	r := NewRedis(p, "c")
	r.OnStreamFrame(types.StreamFrame{ManagerID: "m1"})
	require.NoError(t, r.Close())
	assert.EqualValues(t, 1, r.Failed())
	assert.EqualValues(t, 0, r.Published())
}

func TestRedisDropsWhenQueueFull(t *testing.T) {
	p := &fakePublisher{block: make(chan struct{})}
	r := NewRedis(p, "c", WithQueueSize(1))
	// first frame may be held by the publishing goroutine
	for i := 0; i < 5; i++ {
		r.OnStreamFrame(types.StreamFrame{ManagerID: "m1"})
	}
	assert.GreaterOrEqual(t, r.Dropped(), uint64(3))
	close(p.block)
	require.NoError(t, r.Close())
	assert.Equal(t, uint64(5), r.Published()+r.Dropped())
}

func TestRedisIgnoresFramesAfterClose(t *testing.T) {
	p := &fakePublisher{}
	r := NewRedis(p, "c")
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	r.OnStreamFrame(types.StreamFrame{ManagerID: "m1"})
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, p.messages())
}
