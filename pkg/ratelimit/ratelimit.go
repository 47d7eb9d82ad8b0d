// Package ratelimit provides cooperative request pacing. Probing and
// bypass testing hammer a single target; a fixed inter-request delay or
// a requests-per-second ceiling keeps the tool from tripping
// abuse-detection storms. Pacing is a politeness control, not a
// correctness mechanism.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer gates successive requests to the same target.
type Pacer struct {
	limiter *rate.Limiter
	delay   time.Duration

	mu     sync.Mutex
	primed bool
}

// New creates a Pacer. delay inserts a fixed wait between requests;
// rps, when > 0, additionally caps the request rate with a token
// bucket. Either (or both) may be zero for no pacing.
func New(delay time.Duration, rps float64) *Pacer {
	p := &Pacer{delay: delay}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return p
}

// Wait blocks until the next request may be sent, or until ctx is
// cancelled. The first call never blocks on the fixed delay.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if p.delay > 0 {
		p.mu.Lock()
		first := !p.primed
		p.primed = true
		p.mu.Unlock()
		if !first {
			t := time.NewTimer(p.delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return nil
}

// Delay returns the configured fixed delay.
func (p *Pacer) Delay() time.Duration {
	if p == nil {
		return 0
	}
	return p.delay
}

// Limit returns the configured requests-per-second cap, 0 when uncapped.
func (p *Pacer) Limit() float64 {
	if p == nil || p.limiter == nil {
		return 0
	}
	return float64(p.limiter.Limit())
}
