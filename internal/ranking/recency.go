// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ranking

import (
	"math"
	"time"
)

const (
	// RecencyFloor keeps stale but otherwise strong items from being zeroed by age alone.
	RecencyFloor = 0.2

	millisPerDay = 86400000.0
)

// Recency returns 2^(-ageDays/halfLifeDays) clamped to [RecencyFloor, 1].
// Items dated in the future score 1. A non-positive half-life scores 1;
// profiles with one are rejected before scoring.
func Recency(publishedAt, now time.Time, halfLifeDays float64) float64 {
	if !(halfLifeDays > 0) {
		return 1
	}
	ageDays := float64(now.Sub(publishedAt).Milliseconds()) / millisPerDay
	if ageDays <= 0 {
		return 1
	}
	return clamp(math.Pow(2, -ageDays/halfLifeDays), RecencyFloor, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
