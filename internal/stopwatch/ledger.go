package stopwatch

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Ledger is the ordered list of recorded lap times in milliseconds together
// with the running best. It is owned by a single session goroutine and is not
// safe for concurrent use.
type Ledger struct {
	laps    []float64
	best    float64
	hasBest bool
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append records a finished lap and updates the best lap in O(1).
func (l *Ledger) Append(ms float64) {
	l.laps = append(l.laps, ms)
	if !l.hasBest || ms < l.best {
		l.best = ms
		l.hasBest = true
	}
}

// Clear drops every recorded lap and forgets the best lap.
func (l *Ledger) Clear() {
	l.laps = nil
	l.best = 0
	l.hasBest = false
}

// Best returns the fastest lap since the last Clear. ok is false when the
// ledger is empty.
func (l *Ledger) Best() (ms float64, ok bool) {
	return l.best, l.hasBest
}

// All returns a copy of the laps in completion order.
func (l *Ledger) All() []float64 {
	out := make([]float64, len(l.laps))
	copy(out, l.laps)
	return out
}

// Len returns the number of recorded laps.
func (l *Ledger) Len() int {
	return len(l.laps)
}

// Summary describes the recorded laps. All values are zero when Count is
// zero; StdDev is zero for a single lap.
type Summary struct {
	Count  int     `json:"count"`
	Best   float64 `json:"best_ms"`
	Worst  float64 `json:"worst_ms"`
	Mean   float64 `json:"mean_ms"`
	StdDev float64 `json:"stddev_ms"`
}

// Summary computes aggregate statistics over the recorded laps. It scans the
// whole ledger and is meant for reporting, not for the per-lap update path.
func (l *Ledger) Summary() Summary {
	s := Summary{Count: len(l.laps)}
	if s.Count == 0 {
		return s
	}
	s.Best = l.best
	s.Worst = l.laps[0]
	for _, ms := range l.laps[1:] {
		s.Worst = math.Max(s.Worst, ms)
	}
	if s.Count == 1 {
		s.Mean = l.laps[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(l.laps, nil)
	return s
}
