package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolBoundsInFlight(t *testing.T) {
	const limit = 4
	p := New(limit)

	var current, peak int32
	var mu sync.Mutex

	for i := 0; i < 50; i++ {
		err := p.Go(context.Background(), func() {
			n := atomic.AddInt32(&current, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&current, -1)
		})
		if err != nil {
			t.Fatalf("unexpected admission error: %v", err)
		}
	}
	p.Wait()

	if peak > limit {
		t.Errorf("peak in-flight %d exceeded limit %d", peak, limit)
	}
}

func TestPoolCancelledAdmission(t *testing.T) {
	p := New(1)

	release := make(chan struct{})
	if err := p.Go(context.Background(), func() { <-release }); err != nil {
		t.Fatalf("first task should admit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Go(ctx, func() { t.Error("cancelled task must not run") }); err == nil {
		t.Error("expected admission error after cancellation")
	}

	close(release)
	p.Wait()
}

func TestPoolZeroLimit(t *testing.T) {
	p := New(0)
	if p.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", p.Cap())
	}
}
