package stopwatch

import (
	"fmt"
	"math"
)

// NoBestLap is the best-lap text shown before any lap is recorded and after
// the ledger is cleared.
const NoBestLap = "--:--.---"

// Format renders milliseconds as mm:ss.mmm. Every component is floored;
// minutes are at least two digits wide and never wrap. Negative and NaN input
// render as zero.
func Format(ms float64) string {
	if !(ms > 0) {
		ms = 0
	}
	var whole int64
	if ms >= math.MaxInt64 {
		whole = math.MaxInt64
	} else {
		whole = int64(math.Floor(ms))
	}
	millis := whole % 1000
	totalSec := whole / 1000
	sec := totalSec % 60
	minutes := totalSec / 60
	return fmt.Sprintf("%02d:%02d.%03d", minutes, sec, millis)
}

// FormatBest renders a best-lap value, or NoBestLap when there is none.
func FormatBest(ms float64, ok bool) string {
	if !ok {
		return NoBestLap
	}
	return Format(ms)
}
