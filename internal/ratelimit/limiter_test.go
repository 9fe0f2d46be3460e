package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRateLimiterStartsFull(t *testing.T) {
	rl := NewRateLimiter(1.0, 10.0)
	if tokens := rl.Tokens(); tokens < 9.9 {
		t.Errorf("expected ~10 tokens, got %.2f", tokens)
	}
}

func TestReserveDrainsBucket(t *testing.T) {
	rl := NewRateLimiter(0.001, 5.0)

	for i := 0; i < 5; i++ {
		if d := rl.reserve(); d != 0 {
			t.Fatalf("reserve() #%d asked to wait %v", i+1, d)
		}
	}
	if d := rl.reserve(); d <= 0 {
		t.Error("reserve() on an empty bucket should return a delay")
	}
}

func TestRefillCapsAtBurst(t *testing.T) {
	rl := NewRateLimiter(100.0, 5.0)
	time.Sleep(50 * time.Millisecond)

	if tokens := rl.Tokens(); tokens > 5.1 {
		t.Errorf("tokens should cap at 5, got %.2f", tokens)
	}
}

func TestWait(t *testing.T) {
	tests := []struct {
		name       string
		rate       float64
		timeout    time.Duration
		wantErr    error
		minElapsed time.Duration
	}{
		{name: "blocks until refill", rate: 20, timeout: time.Second, minElapsed: 20 * time.Millisecond},
		{name: "context expires first", rate: 0.01, timeout: 50 * time.Millisecond, wantErr: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.rate, 1.0)
			rl.reserve()

			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()

			start := time.Now()
			err := rl.Wait(ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Wait() error = %v, want %v", err, tt.wantErr)
			}
			if elapsed := time.Since(start); elapsed < tt.minElapsed {
				t.Errorf("Wait() returned after %v, want at least %v", elapsed, tt.minElapsed)
			}
		})
	}
}
