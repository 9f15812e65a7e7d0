package search

import (
	"context"
	"sync"
	"time"

	"github.com/patentlens/kernel/internal/clock"
)

// TokenBucket is a simple per-source rate limiter (SPEC_FULL §5).
type TokenBucket struct {
	clock clock.Clock

	mu       sync.Mutex
	capacity float64
	tokens   float64
	refillPerSecond float64
	lastRefill      time.Time
}

// NewTokenBucket creates a bucket that allows burstSize immediate calls and
// refills at refillPerSecond tokens/second thereafter.
func NewTokenBucket(c clock.Clock, burstSize int, refillPerSecond float64) *TokenBucket {
	return &TokenBucket{
		clock:           c,
		capacity:        float64(burstSize),
		tokens:          float64(burstSize),
		refillPerSecond: refillPerSecond,
		lastRefill:      c.Now(),
	}
}

// Wait blocks (via a short sleep loop) until a token is available or ctx is
// done.
func (b *TokenBucket) Wait(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if b.takeToken() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (b *TokenBucket) takeToken() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = minFloat(b.capacity, b.tokens+elapsed*b.refillPerSecond)
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--

		return true
	}

	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}

	return b
}
