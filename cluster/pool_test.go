package cluster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/kafka-gateway/kafkaadmin"
	"github.com/DataDog/kafka-gateway/kafkaadmin/stub"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// stubFactory returns a Factory handing out stub clients, recording each one.
type stubFactory struct {
	mu      sync.Mutex
	calls   atomic.Int32
	delay   time.Duration
	err     error
	clients []*stub.Client
	// setup is applied to each new client.
	setup func(*stub.Client)
}

func (f *stubFactory) New(kafkaadmin.Config) (kafkaadmin.KafkaAdmin, error) {
	f.calls.Inc()
	time.Sleep(f.delay)

	if f.err != nil {
		return nil, f.err
	}

	c := stub.NewClient()
	if f.setup != nil {
		f.setup(c)
	}

	f.mu.Lock()
	f.clients = append(f.clients, c)
	f.mu.Unlock()

	return c, nil
}

func (f *stubFactory) client(i int) *stub.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[i]
}

func TestAcquireSingleFlight(t *testing.T) {
	f := &stubFactory{delay: 50 * time.Millisecond}
	p := NewPool(f.New, PoolConfig{}, nil)
	profile := testProfile("prod")

	var wg sync.WaitGroup
	conns := make([]*Conn, 32)
	errs := make([]error, 32)

	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conns[i], errs[i] = p.Acquire(context.Background(), profile)
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	for i := range conns {
		require.Nil(t, errs[i])
		assert.Same(t, conns[0], conns[i])
	}

	stats := p.Stats()["prod"]
	assert.Equal(t, ConnStats{State: StateHealthy, Refs: 32, Created: 1}, stats)

	for _, c := range conns {
		p.Release(c)
	}
	assert.Equal(t, 0, p.Stats()["prod"].Refs)
	assert.False(t, f.client(0).Closed())
}

func TestAcquireReusesConn(t *testing.T) {
	f := &stubFactory{}
	p := NewPool(f.New, PoolConfig{}, nil)

	c1, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)
	p.Release(c1)

	c2, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)
	p.Release(c2)

	assert.Same(t, c1, c2)
	assert.Equal(t, int32(1), f.calls.Load())

	// Other clusters get their own Conn.
	c3, err := p.Acquire(context.Background(), testProfile("dev"))
	require.Nil(t, err)
	p.Release(c3)

	assert.NotSame(t, c1, c3)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestAcquireFactoryError(t *testing.T) {
	f := &stubFactory{err: errors.New("no brokers")}
	p := NewPool(f.New, PoolConfig{}, nil)

	_, err := p.Acquire(context.Background(), testProfile("prod"))

	var connErr ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "prod", connErr.Cluster)
	assert.Equal(t, "failed to connect to cluster prod: no brokers", err.Error())
}

func TestAcquirePingError(t *testing.T) {
	pingErr := kafka.NewError(kafka.ErrAllBrokersDown, "Local: All broker connections are down", false)
	f := &stubFactory{setup: func(c *stub.Client) { c.SetError(stub.MethodPing, pingErr) }}
	p := NewPool(f.New, PoolConfig{}, nil)

	_, err := p.Acquire(context.Background(), testProfile("prod"))
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, pingErr))

	// The unreachable client is closed and nothing is registered.
	assert.True(t, f.client(0).Closed())
	assert.Len(t, p.Stats(), 0)

	// SkipPing defers failures to the first call.
	p = NewPool(f.New, PoolConfig{SkipPing: true}, nil)
	c, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)
	p.Release(c)
}

func TestAcquireWaiterContext(t *testing.T) {
	f := &stubFactory{delay: 200 * time.Millisecond}
	p := NewPool(f.New, PoolConfig{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Acquire(ctx, testProfile("prod"))
	assert.Equal(t, context.DeadlineExceeded, err)

	// The shared creation still completes and is reused.
	c, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)
	p.Release(c)

	assert.Equal(t, int32(1), f.calls.Load())
}

func TestInvalidate(t *testing.T) {
	f := &stubFactory{}
	p := NewPool(f.New, PoolConfig{}, nil)

	c1, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)

	// A second holder keeps the broken client open.
	c2, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)
	require.Same(t, c1, c2)

	p.Invalidate(c1)
	assert.Equal(t, StateBroken, c1.State())
	assert.False(t, f.client(0).Closed())

	// New callers get a fresh Conn.
	c3, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)
	assert.NotSame(t, c1, c3)
	assert.Equal(t, int32(2), f.calls.Load())

	p.Release(c2)
	assert.True(t, f.client(0).Closed())

	// Releasing twice is harmless.
	p.Release(c2)

	p.Release(c3)
	assert.False(t, f.client(1).Closed())
	assert.Equal(t, ConnStats{State: StateHealthy, Refs: 0, Created: 2}, p.Stats()["prod"])
}

func TestEvict(t *testing.T) {
	f := &stubFactory{}
	p := NewPool(f.New, PoolConfig{}, nil)

	c, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)

	// The holder is unaffected until it releases.
	p.Evict(c)
	assert.False(t, f.client(0).Closed())

	p.Release(c)
	assert.True(t, f.client(0).Closed())
}

func TestAcquireUnknownState(t *testing.T) {
	f := &stubFactory{}
	p := NewPool(f.New, PoolConfig{}, nil)

	c, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)
	c.MarkUnknown()
	p.Release(c)

	// A passing health check restores the Conn.
	c, err = p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)
	assert.Equal(t, StateHealthy, c.State())
	assert.Equal(t, 2, f.client(0).Calls(stub.MethodPing))
	c.MarkUnknown()
	p.Release(c)

	// A failing one replaces it.
	f.client(0).SetError(stub.MethodPing, kafka.NewError(kafka.ErrTransport, "Local: Broker transport failure", false))

	c2, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)
	assert.NotSame(t, c, c2)
	assert.True(t, f.client(0).Closed())
	p.Release(c2)
}

func TestAcquireUnknownStateCallerCancel(t *testing.T) {
	f := &stubFactory{}
	p := NewPool(f.New, PoolConfig{}, nil)

	c, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)
	c.MarkUnknown()
	p.Release(c)

	// The health check is interrupted by the caller, not the transport.
	admin := f.client(0)
	admin.SetDelay(50 * time.Millisecond)
	admin.SetError(stub.MethodPing, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err = p.Acquire(ctx, testProfile("prod"))
	assert.Equal(t, context.Canceled, err)

	stats := p.Stats()["prod"]
	assert.Equal(t, StateUnknown, stats.State)
	assert.Equal(t, 0, stats.Refs)
	assert.Equal(t, 1, stats.Created)
	assert.False(t, admin.Closed())

	admin.SetDelay(0)
	admin.SetError(stub.MethodPing, nil)

	c, err = p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)
	assert.Equal(t, StateHealthy, c.State())
	assert.Equal(t, 1, p.Stats()["prod"].Created)
	p.Release(c)
}

func TestPoolClose(t *testing.T) {
	f := &stubFactory{}
	p := NewPool(f.New, PoolConfig{}, nil)

	c, err := p.Acquire(context.Background(), testProfile("prod"))
	require.Nil(t, err)

	p.Close()
	_, err = p.Acquire(context.Background(), testProfile("prod"))
	assert.Equal(t, ErrPoolClosed, err)

	// In-use Conns close on release.
	assert.False(t, f.client(0).Closed())
	p.Release(c)
	assert.True(t, f.client(0).Closed())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "healthy", StateHealthy.String())
	assert.Equal(t, "broken", StateBroken.String())
}
