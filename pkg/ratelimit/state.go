// Package ratelimit tracks the vendor's per-endpoint request window.
// It reads the x-rate-limit-remaining and x-rate-limit-reset headers after
// every response and suspends callers until the window resets once the
// remaining request budget is exhausted.
package ratelimit

import (
	"time"
)

// Response headers carrying the rate limit window.
const (
	HeaderRemaining = "X-Rate-Limit-Remaining"
	HeaderReset     = "X-Rate-Limit-Reset"
)

const (
	// DefaultRemaining is assumed when the remaining header is absent.
	// It must be non-zero so a missing header never reads as "limit reached".
	DefaultRemaining = 1

	// DefaultResetEpoch is assumed when the reset header is absent.
	DefaultResetEpoch = 0

	// MinWait is the floor applied to every wait for a window reset.
	MinWait = 1 * time.Second
)

// State is a snapshot of the rate limit window for one logical endpoint.
type State struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAtEpochSeconds is the Unix time at which the window resets.
	ResetAtEpochSeconds int64 `json:"reset_at"`

	// Known is false until a response carried the remaining header.
	Known bool `json:"known"`

	// LastUpdate is when the state was last refreshed from headers.
	LastUpdate time.Time `json:"last_update"`
}

// Exhausted reports whether the window has no requests left.
func (s State) Exhausted() bool {
	return s.Remaining == 0
}

// ResetAt returns the reset epoch as a time.Time.
func (s State) ResetAt() time.Time {
	return time.Unix(s.ResetAtEpochSeconds, 0)
}

// WaitDuration returns max(reset - now, MinWait).
func (s State) WaitDuration(now time.Time) time.Duration {
	wait := time.Duration(s.ResetAtEpochSeconds-now.Unix()) * time.Second
	if wait < MinWait {
		return MinWait
	}
	return wait
}
