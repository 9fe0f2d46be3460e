// Package ratelimit paces requests to the analysis server with a token bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/pfamflow/pfam-int/internal/constants"
	"github.com/pfamflow/pfam-int/internal/logging"
)

// Waits longer than this are logged, at most once per warnEvery.
const (
	slowWait  = 2 * time.Second
	warnEvery = 10 * time.Second
)

// RateLimiter is a token bucket: bursts of up to burst requests, refilled at
// rate tokens per second.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	burst    float64
	rate     float64
	last     time.Time
	warnedAt time.Time
	logger   *logging.Logger
}

// NewRateLimiter returns a limiter with a full bucket.
func NewRateLimiter(rate, burst float64) *RateLimiter {
	return &RateLimiter{tokens: burst, burst: burst, rate: rate, last: time.Now()}
}

// NewAPIRateLimiter creates the limiter shared by all calls to one server.
// Status polling runs at 1 req/sec, so the default rate only bites on
// misbehaving loops.
func NewAPIRateLimiter(logger *logging.Logger) *RateLimiter {
	rl := NewRateLimiter(constants.APIRatePerSec, constants.APIBurstCapacity)
	rl.logger = logger
	return rl
}

// Wait takes one token, sleeping until one is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay := rl.reserve()
		if delay == 0 {
			return nil
		}
		rl.warnSlow(delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token and returns zero, or returns how long until the next
// token exists.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill(time.Now())
	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	d := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}

func (rl *RateLimiter) warnSlow(delay time.Duration) {
	if rl.logger == nil || delay <= slowWait {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.warnedAt) < warnEvery {
		return
	}
	rl.warnedAt = time.Now()
	rl.logger.Warn().Dur("wait", delay).Msg("Rate limited, waiting for request capacity")
}

// refill requires rl.mu.
func (rl *RateLimiter) refill(now time.Time) {
	rl.tokens += now.Sub(rl.last).Seconds() * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.last = now
}

// Tokens reports the tokens currently in the bucket.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill(time.Now())
	return rl.tokens
}
