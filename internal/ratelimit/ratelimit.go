// Package ratelimit provides a wrapper around golang.org/x/time/rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with per-minute construction, the unit
// exchange request weights are published in.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing weightPerMinute with a burst of 10% of
// the rate. Zero or negative rates mean unlimited.
func New(weightPerMinute int) *Limiter {
	if weightPerMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	rps := float64(weightPerMinute) / 60.0
	burst := weightPerMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// WaitN blocks until a request of weight n may be sent or ctx is done.
// Weights above the burst are charged the full burst, so a single heavy
// request never fails outright on a small budget.
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	if b := l.limiter.Burst(); n > b {
		n = b
	}
	return l.limiter.WaitN(ctx, n)
}
