package cluster

import (
	"sync"

	"github.com/DataDog/kafka-gateway/kafkaadmin"

	"go.uber.org/atomic"
)

// State is the health of a Conn.
type State int32

const (
	// StateUnknown Conns are health checked before being handed out.
	StateUnknown State = iota
	StateHealthy
	// StateBroken Conns are never handed out again.
	StateBroken
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// Conn is a pooled admin client bound to one Profile.
type Conn struct {
	profile Profile
	admin   kafkaadmin.KafkaAdmin

	state atomic.Int32
	// refs counts holders, including the pool itself while the Conn is
	// registered. The admin client is closed when it drops to zero.
	refs      atomic.Int32
	closeOnce sync.Once
}

func newConn(profile Profile, admin kafkaadmin.KafkaAdmin) *Conn {
	c := &Conn{
		profile: profile,
		admin:   admin,
	}
	c.refs.Store(1)

	return c
}

// Admin returns the underlying admin client.
func (c *Conn) Admin() kafkaadmin.KafkaAdmin {
	return c.admin
}

// Profile returns the Profile the Conn is bound to.
func (c *Conn) Profile() Profile {
	return c.profile
}

// State returns the current health State.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// MarkHealthy records a successful round trip. Broken Conns stay broken.
func (c *Conn) MarkHealthy() {
	c.state.CompareAndSwap(int32(StateUnknown), int32(StateHealthy))
}

// MarkUnknown flags a Conn for a health check on its next Acquire. Broken
// Conns stay broken.
func (c *Conn) MarkUnknown() {
	c.state.CompareAndSwap(int32(StateHealthy), int32(StateUnknown))
}

// acquire takes a reference unless the Conn is broken or already closed.
func (c *Conn) acquire() bool {
	for {
		n := c.refs.Load()
		if n <= 0 {
			return false
		}

		if c.refs.CompareAndSwap(n, n+1) {
			break
		}
	}

	if c.State() == StateBroken {
		c.release()
		return false
	}

	return true
}

// release drops a reference, closing the admin client with the last one.
// Excess releases are ignored.
func (c *Conn) release() {
	for {
		n := c.refs.Load()
		if n <= 0 {
			return
		}

		if c.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				c.closeOnce.Do(c.admin.Close)
			}
			return
		}
	}
}
