package ratelimit

import (
	"testing"
	"time"
)

func TestState_Exhausted(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		expected  bool
	}{
		{name: "window exhausted", remaining: 0, expected: true},
		{name: "one request left", remaining: 1, expected: false},
		{name: "plenty left", remaining: 450, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{Remaining: tt.remaining}
			if got := s.Exhausted(); got != tt.expected {
				t.Errorf("Exhausted() = %v, want %v (remaining=%d)", got, tt.expected, tt.remaining)
			}
		})
	}
}

func TestState_WaitDuration(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name     string
		resetAt  int64
		expected time.Duration
	}{
		{name: "reset in the future", resetAt: now.Unix() + 42, expected: 42 * time.Second},
		{name: "reset one second away", resetAt: now.Unix() + 1, expected: time.Second},
		{name: "reset right now uses floor", resetAt: now.Unix(), expected: MinWait},
		{name: "reset already passed uses floor", resetAt: now.Unix() - 300, expected: MinWait},
		{name: "reset header absent uses floor", resetAt: DefaultResetEpoch, expected: MinWait},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{ResetAtEpochSeconds: tt.resetAt}
			if got := s.WaitDuration(now); got != tt.expected {
				t.Errorf("WaitDuration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_ResetAt(t *testing.T) {
	s := State{ResetAtEpochSeconds: 1_700_000_123}
	if got := s.ResetAt().Unix(); got != 1_700_000_123 {
		t.Errorf("ResetAt().Unix() = %d, want 1700000123", got)
	}
}
