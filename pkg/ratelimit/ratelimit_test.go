package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNilPacerNeverBlocks(t *testing.T) {
	var p *Pacer
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("nil pacer: %v", err)
	}
	if p.Delay() != 0 {
		t.Error("nil pacer delay should be zero")
	}
}

func TestFixedDelaySkipsFirstCall(t *testing.T) {
	p := New(50*time.Millisecond, 0)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 25*time.Millisecond {
		t.Errorf("first Wait blocked %v, want no delay", elapsed)
	}

	start = time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("second Wait blocked only %v, want ~50ms", elapsed)
	}
}

func TestRateCapEnforced(t *testing.T) {
	// Burst 20, then 5 more waits at 20 rps = 50ms apiece.
	p := New(0, 20)

	start := time.Now()
	for i := 0; i < 25; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("25 waits at 20 rps took only %v", elapsed)
	}
}

func TestLimit(t *testing.T) {
	if got := New(0, 50).Limit(); got != 50 {
		t.Errorf("Limit() = %v, want 50", got)
	}
	if got := New(time.Second, 0).Limit(); got != 0 {
		t.Errorf("uncapped Limit() = %v, want 0", got)
	}
	var p *Pacer
	if got := p.Limit(); got != 0 {
		t.Errorf("nil Limit() = %v, want 0", got)
	}
}

func TestWaitRespectsCancellation(t *testing.T) {
	p := New(time.Minute, 0)
	_ = p.Wait(context.Background()) // prime

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := p.Wait(ctx); err == nil {
		t.Error("expected context error from cancelled Wait")
	}
}
