package stream

import (
	"math"
	"time"
)

// Vendor bounds for backfill_minutes.
const (
	MinBackfillMinutes = 1
	MaxBackfillMinutes = 5
)

// ParamBackfillMinutes is the query parameter requesting replay after a gap.
const ParamBackfillMinutes = "backfill_minutes"

// BackfillMinutes returns the minutes to request to cover a gap since last,
// rounded up and clamped to [MinBackfillMinutes, MaxBackfillMinutes]. A zero
// last yields the maximum.
func BackfillMinutes(last, now time.Time) int {
	if last.IsZero() {
		return MaxBackfillMinutes
	}
	minutes := int(math.Ceil(now.Sub(last).Minutes()))
	return ClampBackfill(minutes)
}

// ClampBackfill bounds minutes to the vendor's accepted range.
func ClampBackfill(minutes int) int {
	switch {
	case minutes < MinBackfillMinutes:
		return MinBackfillMinutes
	case minutes > MaxBackfillMinutes:
		return MaxBackfillMinutes
	default:
		return minutes
	}
}
