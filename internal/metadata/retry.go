package metadata

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes the retry schedule for text-generation calls: a fixed
// attempt budget with a uniformly random delay between attempts. It is pure
// data; the sleeping is injected so tests run without real delay.
type Policy struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// DefaultPolicy matches the service's rate-limit guidance: 5 attempts with
// half a second to three seconds between them.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		MinBackoff:  500 * time.Millisecond,
		MaxBackoff:  3 * time.Second,
	}
}

// Backoff returns the delay before the next attempt, uniform in
// [MinBackoff, MaxBackoff]. random must yield values in [0, 1).
func (p Policy) Backoff(random func() float64) time.Duration {
	if p.MaxBackoff <= p.MinBackoff {
		return p.MinBackoff
	}
	span := float64(p.MaxBackoff - p.MinBackoff)
	return p.MinBackoff + time.Duration(random()*span)
}

// Sleeper waits for the given delay, honoring context cancellation
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepWithContext is the production Sleeper
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op up to p.MaxAttempts times, sleeping a randomized backoff
// between attempts while retryable reports the error as worth another try.
// It returns nil on the first success, the last error otherwise.
func Do(ctx context.Context, p Policy, sleep Sleeper, random func() float64, retryable func(error) bool, op func() error) error {
	if random == nil {
		random = rand.Float64
	}
	if sleep == nil {
		sleep = SleepWithContext
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.Backoff(random)); err != nil {
				return lastErr
			}
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
