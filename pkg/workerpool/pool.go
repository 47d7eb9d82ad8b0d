// Package workerpool provides a bounded goroutine pool for network
// probing. The contract it preserves is bounded in-flight count plus
// cancellation: no more than limit tasks run simultaneously, admission
// waits for a free slot, and a caller abort stops admitting new work
// while in-flight tasks drain.
package workerpool

import (
	"context"
	"sync"
)

// Pool admits at most a fixed number of concurrent tasks.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// New creates a pool admitting up to limit concurrent tasks.
// limit <= 0 is treated as 1.
func New(limit int) *Pool {
	if limit <= 0 {
		limit = 1
	}
	return &Pool{sem: make(chan struct{}, limit)}
}

// Go runs task on its own goroutine once a slot frees up. It blocks
// until admission or until ctx is cancelled, in which case the task is
// never started and ctx.Err() is returned.
func (p *Pool) Go(ctx context.Context, task func()) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.sem <- struct{}{}:
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		task()
	}()
	return nil
}

// Wait blocks until every admitted task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Cap returns the admission limit.
func (p *Pool) Cap() int {
	return cap(p.sem)
}

// InFlight returns the number of currently admitted tasks.
func (p *Pool) InFlight() int {
	return len(p.sem)
}
