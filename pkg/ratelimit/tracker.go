package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sternrassler/twitterapi-client/pkg/metrics"
	"github.com/rs/zerolog"
)

// Tracker holds the rate limit state of one logical request stream.
// A Tracker is not safe for concurrent use; give every engine its own.
type Tracker struct {
	endpoint string
	state    State
	logger   zerolog.Logger
	now      func() time.Time
}

// NewTracker creates a tracker for the given endpoint label.
func NewTracker(endpoint string, logger zerolog.Logger) *Tracker {
	return &Tracker{
		endpoint: endpoint,
		state: State{
			Remaining:           DefaultRemaining,
			ResetAtEpochSeconds: DefaultResetEpoch,
		},
		logger: logger,
		now:    time.Now,
	}
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	return t.state
}

// Update refreshes the state from response headers.
// Absent headers fall back to DefaultRemaining and DefaultResetEpoch. A header
// that cannot be parsed is treated as absent and reported as an error; the
// state is still updated so throttling never acts on stale values.
func (t *Tracker) Update(headers http.Header) error {
	var parseErr error

	remaining := DefaultRemaining
	known := false
	if v := headers.Get(HeaderRemaining); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil:
			parseErr = fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
		case n < 0:
			parseErr = fmt.Errorf("parse %s header: negative value %d", HeaderRemaining, n)
		default:
			remaining = n
			known = true
		}
	}

	var resetAt int64 = DefaultResetEpoch
	if v := headers.Get(HeaderReset); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			if parseErr == nil {
				parseErr = fmt.Errorf("parse %s header: %w", HeaderReset, err)
			}
		} else {
			resetAt = n
		}
	}

	t.state = State{
		Remaining:           remaining,
		ResetAtEpochSeconds: resetAt,
		Known:               known,
		LastUpdate:          t.now(),
	}

	if known {
		metrics.RateLimitRemaining.WithLabelValues(t.endpoint).Set(float64(remaining))
	}

	if t.state.Exhausted() {
		t.logger.Warn().
			Str("endpoint", t.endpoint).
			Time("reset_at", t.state.ResetAt()).
			Msg("Rate limit window exhausted")
	} else {
		t.logger.Debug().
			Str("endpoint", t.endpoint).
			Int("remaining", remaining).
			Int64("reset_at", resetAt).
			Msg("Rate limit state updated")
	}

	return parseErr
}

// ShouldWait reports whether the window is exhausted.
func (t *Tracker) ShouldWait() bool {
	return t.state.Exhausted()
}

// WaitForReset suspends the caller for max(reset - now, 1s).
// It returns early only when ctx is done, with ctx.Err().
func (t *Tracker) WaitForReset(ctx context.Context) error {
	wait := t.state.WaitDuration(t.now())

	t.logger.Warn().
		Str("endpoint", t.endpoint).
		Dur("wait", wait).
		Msg("Rate limit exceeded, waiting for window reset")

	metrics.RateLimitWaitsTotal.WithLabelValues(t.endpoint).Inc()
	start := time.Now()
	defer func() {
		metrics.RateLimitWaitSeconds.WithLabelValues(t.endpoint).Observe(time.Since(start).Seconds())
	}()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
