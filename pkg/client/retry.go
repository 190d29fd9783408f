package client

import (
	"context"
	"math/rand"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/ratelimit"
)

// Unlimited disables the retry bound.
const Unlimited = -1

// RetryPolicy controls how the executor re-issues retryable requests.
type RetryPolicy struct {
	// MaxTransientRetries bounds retries after Transient outcomes.
	// Unlimited retries forever; 0 never retries.
	MaxTransientRetries int

	// MaxRateLimitRetries bounds retries after RateLimited outcomes.
	MaxRateLimitRetries int

	// Backoff is the sleep before the first transient retry. Values <= 0
	// fall back to ratelimit.MinWait.
	Backoff time.Duration

	// MaxBackoff caps the sleep between transient retries.
	MaxBackoff time.Duration

	// Multiplier grows the sleep after each transient retry. 1 keeps it fixed.
	Multiplier float64

	// Jitter randomizes each sleep by ±Jitter (0.2 = ±20%).
	Jitter float64
}

// BatchRetryPolicy suits jobs that must terminate: a few transient retries,
// rate limit waits until the window resets.
func BatchRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTransientRetries: 3,
		MaxRateLimitRetries: Unlimited,
		Backoff:             10 * time.Second,
		MaxBackoff:          60 * time.Second,
		Multiplier:          2.0,
		Jitter:              0.2,
	}
}

// LiveRetryPolicy suits live consumers that favor continuity over termination.
func LiveRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTransientRetries: Unlimited,
		MaxRateLimitRetries: Unlimited,
		Backoff:             10 * time.Second,
		MaxBackoff:          10 * time.Second,
		Multiplier:          1.0,
		Jitter:              0,
	}
}

// allows reports whether another retry is permitted after used retries.
func allows(limit, used int) bool {
	return limit < 0 || used < limit
}

// backoff yields successive transient retry sleeps for one request.
type backoff struct {
	policy RetryPolicy
	next   time.Duration
}

func newBackoff(policy RetryPolicy) *backoff {
	if policy.Backoff <= 0 {
		policy.Backoff = ratelimit.MinWait
	}
	return &backoff{policy: policy, next: policy.Backoff}
}

// Next returns the sleep before the upcoming retry and advances the sequence.
func (b *backoff) Next() time.Duration {
	current := b.next

	multiplier := b.policy.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	b.next = time.Duration(float64(b.next) * multiplier)
	if b.policy.MaxBackoff > 0 && b.next > b.policy.MaxBackoff {
		b.next = b.policy.MaxBackoff
	}

	if b.policy.Jitter > 0 && current > 0 {
		factor := 1 - b.policy.Jitter + rand.Float64()*2*b.policy.Jitter
		current = time.Duration(float64(current) * factor)
	}
	return current
}

// Sleep waits for d or until ctx is done, returning ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
