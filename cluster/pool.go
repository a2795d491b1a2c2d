package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DataDog/kafka-gateway/kafkaadmin"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrPoolClosed is returned by Acquire once the Pool is closed.
	ErrPoolClosed = errors.New("connection pool closed")
	// Default bound on the health check of a Conn in the unknown state.
	defaultPingTimeout = 5 * time.Second
)

// Factory builds an admin client from a kafkaadmin.Config.
type Factory func(kafkaadmin.Config) (kafkaadmin.KafkaAdmin, error)

// DefaultFactory builds confluent-kafka-go backed admin clients.
func DefaultFactory(cfg kafkaadmin.Config) (kafkaadmin.KafkaAdmin, error) {
	return kafkaadmin.NewClient(cfg)
}

// ConnectionError is returned when an admin client can't be created for a
// cluster.
type ConnectionError struct {
	Cluster string
	Err     error
}

func (e ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to cluster %s: %s", e.Cluster, e.Err)
}

func (e ConnectionError) Unwrap() error {
	return e.Err
}

// PoolConfig holds Pool configuration parameters.
type PoolConfig struct {
	// ClientID is sent to brokers by every admin client.
	ClientID string
	// SkipPing disables the metadata round trip that verifies a newly created
	// admin client.
	SkipPing bool
	// PingTimeout bounds health checks. Defaults to 5s.
	PingTimeout time.Duration
}

// Pool hands out at most one live Conn per cluster Profile. Creation is
// single-flight per Profile name.
type Pool struct {
	factory Factory
	cfg     PoolConfig
	log     *zap.Logger

	mu      sync.RWMutex
	conns   map[string]*Conn
	created map[string]int

	sf     singleflight.Group
	closed atomic.Bool
}

// NewPool initializes a Pool. A nil logger disables logging.
func NewPool(factory Factory, cfg PoolConfig, logger *zap.Logger) *Pool {
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = defaultPingTimeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pool{
		factory: factory,
		cfg:     cfg,
		log:     logger,
		conns:   make(map[string]*Conn),
		created: make(map[string]int),
	}
}

// Acquire returns the Conn for the Profile, creating it if none is
// registered or the registered one is broken. Every successful Acquire must
// be paired with a Release or Invalidate.
//
// Concurrent callers for the same Profile share a single creation attempt. A
// caller whose ctx ends while waiting returns ctx.Err() without cancelling
// the shared attempt.
func (p *Pool) Acquire(ctx context.Context, profile Profile) (*Conn, error) {
	for {
		if p.closed.Load() {
			return nil, ErrPoolClosed
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if c := p.lookup(profile.Name); c != nil && c.acquire() {
			if c.State() != StateUnknown {
				return c, nil
			}

			// Health is unknown after an interrupted call; verify before use.
			if err := p.ping(ctx, c); err != nil {
				if ctx.Err() != nil {
					// The caller gave up; the check says nothing about the
					// transport.
					p.Release(c)
					return nil, ctx.Err()
				}

				p.log.Warn("evicting unhealthy connection",
					zap.String("cluster", profile.Name),
					zap.Error(err))
				p.Invalidate(c)
				continue
			}

			c.MarkHealthy()
			return c, nil
		}

		ch := p.sf.DoChan(profile.Name, func() (interface{}, error) {
			return p.create(profile)
		})

		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			// The new Conn is registered; take a reference on the next pass.
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release returns a Conn obtained from Acquire.
func (p *Pool) Release(c *Conn) {
	c.release()
}

// Invalidate marks a Conn obtained from Acquire as broken and releases it.
// The Conn is never handed out again; its admin client is closed once every
// holder has released it.
func (p *Pool) Invalidate(c *Conn) {
	p.Evict(c)
	c.release()
}

// Evict marks a Conn as broken and unregisters it without releasing the
// caller's reference. It is used when the Conn is still in use by an
// abandoned call that will release it when it returns.
func (p *Pool) Evict(c *Conn) {
	if !c.state.CompareAndSwap(int32(StateHealthy), int32(StateBroken)) &&
		!c.state.CompareAndSwap(int32(StateUnknown), int32(StateBroken)) {
		// Already broken.
		return
	}

	p.mu.Lock()
	if p.conns[c.profile.Name] == c {
		delete(p.conns, c.profile.Name)
	}
	p.mu.Unlock()

	connectionsInvalidated.WithLabelValues(c.profile.Name).Inc()
	p.log.Info("connection invalidated", zap.String("cluster", c.profile.Name))

	// Drop the pool's own reference.
	c.release()
}

// Close evicts every registered Conn. Conns still in use are closed when
// released. Acquire fails with ErrPoolClosed afterwards.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	p.mu.RLock()
	var conns = make([]*Conn, 0, len(p.conns))
	for _, c := range p.conns {
		conns = append(conns, c)
	}
	p.mu.RUnlock()

	for _, c := range conns {
		p.Evict(c)
	}
}

// ConnStats describes the pool state for a cluster.
type ConnStats struct {
	State State
	// Refs is the number of callers currently holding the Conn.
	Refs int
	// Created counts admin clients created for the cluster.
	Created int
}

// Stats returns per-cluster pool statistics. Clusters that never had a Conn
// are omitted.
func (p *Pool) Stats() map[string]ConnStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var stats = make(map[string]ConnStats, len(p.created))
	for name, n := range p.created {
		s := ConnStats{State: StateBroken, Created: n}

		if c, ok := p.conns[name]; ok {
			s.State = c.State()
			// Exclude the pool's own reference.
			s.Refs = int(c.refs.Load()) - 1
		}

		stats[name] = s
	}

	return stats
}

func (p *Pool) lookup(name string) *Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conns[name]
}

// create builds, verifies and registers a Conn. It runs at most once
// concurrently per Profile name.
func (p *Pool) create(profile Profile) (*Conn, error) {
	// A waiter may have been overtaken by a creation that completed between
	// its lookup and joining the flight.
	if c := p.lookup(profile.Name); c != nil && c.State() != StateBroken {
		return c, nil
	}

	start := time.Now()

	admin, err := p.factory(profile.AdminConfig(p.cfg.ClientID))
	if err != nil {
		p.log.Warn("failed to create admin client",
			zap.String("cluster", profile.Name),
			zap.Error(err))
		return nil, ConnectionError{Cluster: profile.Name, Err: err}
	}

	c := newConn(profile, admin)

	if !p.cfg.SkipPing {
		// Creation is shared by every waiter, so it is bounded by the pool
		// rather than any single caller.
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PingTimeout)
		defer cancel()

		if err := admin.Ping(ctx); err != nil {
			admin.Close()
			p.log.Warn("failed to reach cluster",
				zap.String("cluster", profile.Name),
				zap.Error(err))
			return nil, ConnectionError{Cluster: profile.Name, Err: err}
		}
	}

	c.MarkHealthy()

	p.mu.Lock()
	p.conns[profile.Name] = c
	p.created[profile.Name]++
	p.mu.Unlock()

	// Close raced with creation.
	if p.closed.Load() {
		p.Evict(c)
		return nil, ErrPoolClosed
	}

	connectionsCreated.WithLabelValues(profile.Name).Inc()
	p.log.Info("connection created",
		zap.String("cluster", profile.Name),
		zap.Strings("bootstrap_servers", profile.BootstrapServers),
		zap.Duration("elapsed", time.Since(start)))

	return c, nil
}

func (p *Pool) ping(ctx context.Context, c *Conn) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PingTimeout)
	defer cancel()

	return c.admin.Ping(ctx)
}
