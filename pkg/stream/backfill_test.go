package stream

import (
	"testing"
	"time"
)

func TestBackfillMinutes(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		last     time.Time
		expected int
	}{
		{name: "never connected", last: time.Time{}, expected: 5},
		{name: "just now", last: now, expected: 1},
		{name: "ten seconds", last: now.Add(-10 * time.Second), expected: 1},
		{name: "rounds up", last: now.Add(-61 * time.Second), expected: 2},
		{name: "exactly three minutes", last: now.Add(-3 * time.Minute), expected: 3},
		{name: "clamped to five", last: now.Add(-2 * time.Hour), expected: 5},
		{name: "clock skew", last: now.Add(time.Minute), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BackfillMinutes(tt.last, now); got != tt.expected {
				t.Errorf("BackfillMinutes() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestClampBackfill(t *testing.T) {
	for in, want := range map[int]int{-3: 1, 0: 1, 1: 1, 4: 4, 5: 5, 60: 5} {
		if got := ClampBackfill(in); got != want {
			t.Errorf("ClampBackfill(%d) = %d, want %d", in, got, want)
		}
	}
}
