package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestNew_Burst(t *testing.T) {
	tests := []struct {
		rpm   int
		burst int
	}{
		{1200, 120},
		{60, 6},
		{5, 1},
	}
	for _, tt := range tests {
		if got := New(tt.rpm).limiter.Burst(); got != tt.burst {
			t.Errorf("New(%d) burst = %d, want %d", tt.rpm, got, tt.burst)
		}
	}
}

func TestLimiter_WaitNExhaustsBurst(t *testing.T) {
	l := New(60) // 1 per second, burst 6
	if err := l.WaitN(context.Background(), 5); err != nil {
		t.Fatalf("WaitN(5) within burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.WaitN(ctx, 5); err == nil {
		t.Error("WaitN(5) = nil, want an error when the budget refills after the deadline")
	}
}

func TestLimiter_WaitNClampsToBurst(t *testing.T) {
	l := New(60)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.WaitN(ctx, 250); err != nil {
		t.Fatalf("WaitN(250) on a fresh limiter: %v", err)
	}
}

func TestNew_Unlimited(t *testing.T) {
	l := New(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	for i := 0; i < 1000; i++ {
		if err := l.WaitN(ctx, 50); err != nil {
			t.Fatalf("unlimited limiter refused request %d: %v", i+1, err)
		}
	}
}
