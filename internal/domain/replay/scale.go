package replay

import (
	"math"
	"time"
)

// ScaleDuration returns d×k clamped to the range of time.Duration, so a huge
// catch-up or a tiny acceleration saturates instead of wrapping negative.
// k must not be NaN.
func ScaleDuration(d time.Duration, k float64) time.Duration {
	return clampDuration(float64(d) * k)
}

func clampDuration(ns float64) time.Duration {
	switch {
	case ns >= math.MaxInt64:
		return math.MaxInt64
	case ns <= math.MinInt64:
		return math.MinInt64
	}
	return time.Duration(ns)
}
