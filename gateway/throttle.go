package gateway

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

var (
	// ErrRequestThrottleTimeout error.
	ErrRequestThrottleTimeout = errors.New("wait time exceeded")
)

// RequestThrottle controls request rates with
// a configurable burst capacity and per-second rate
// backed with a token bucket.
type RequestThrottle interface {
	Request(context.Context) error
}

type requestThrottle struct {
	l *rate.Limiter
}

// RequestThrottleConfig specifies the RequestThrottle
// burst capacity and per-second rate limit.
type RequestThrottleConfig struct {
	// Burst capacity.
	Capacity int
	// Request rate (reqs/s).
	Rate int
}

// NewRequestThrottle initializes a RequestThrottle.
func NewRequestThrottle(cfg RequestThrottleConfig) (RequestThrottle, error) {
	switch {
	case cfg.Rate < 1:
		return nil, errors.New("rate must be >= 1")
	case cfg.Capacity < 1:
		return nil, errors.New("capacity must be >= 1")
	}

	return &requestThrottle{
		l: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Capacity),
	}, nil
}

// Request takes a context and attempts to acquire a token
// from the requestThrottle. An error is returned if a free
// token can't be acquired by the context expiration.
func (t *requestThrottle) Request(ctx context.Context) error {
	if err := t.l.Wait(ctx); err != nil {
		return ErrRequestThrottleTimeout
	}

	return nil
}
