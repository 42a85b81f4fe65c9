package utils

import (
	"math"
	"time"
)

// DaysUntil counts the days from now to t, rounding any partial day up. Past
// instants give zero or a negative count.
func DaysUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}
