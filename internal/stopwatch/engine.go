// Package stopwatch implements the lap timing state machine, the lap ledger
// and the mm:ss.mmm formatter.
package stopwatch

import (
	"time"

	"github.com/banshee-data/lap.timer/internal/gate"
	"github.com/banshee-data/lap.timer/internal/timeutil"
)

// DefaultTickInterval is how often the running clock is refreshed.
const DefaultTickInterval = 100 * time.Millisecond

// OutputKind identifies what an Output asks the display to do.
type OutputKind int

const (
	// ClockUpdate sets the running clock to Millis.
	ClockUpdate OutputKind = iota
	// LapRecorded reports a lap of Millis finalised by a goal and appended to
	// the ledger. The clock has already been set to the same value.
	LapRecorded
	// RunAborted reports that a start arrived while running. Millis is the
	// elapsed time of the abandoned run; it is shown but never recorded.
	RunAborted
)

func (k OutputKind) String() string {
	switch k {
	case ClockUpdate:
		return "clock"
	case LapRecorded:
		return "lap"
	case RunAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Output is a notification produced by a state transition.
type Output struct {
	Kind   OutputKind
	Millis float64
}

// LapRecorder receives finalised laps. The engine only ever appends.
type LapRecorder interface {
	Append(ms float64)
}

// run is the Running state. The ticker belongs to the run: it is created when
// the run starts and stopped when the run ends.
type run struct {
	start  time.Time
	ticker timeutil.Ticker
}

// Engine is the two-state stopwatch. A nil run means Idle. Engine is driven
// from a single goroutine and is not safe for concurrent use.
type Engine struct {
	clock    timeutil.Clock
	interval time.Duration
	laps     LapRecorder
	run      *run
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTickInterval overrides DefaultTickInterval. Non-positive values are
// ignored.
func WithTickInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// NewEngine returns an idle engine that appends finished laps to laps and
// creates its display tickers from clock.
func NewEngine(clock timeutil.Clock, laps LapRecorder, opts ...EngineOption) *Engine {
	e := &Engine{
		clock:    clock,
		interval: DefaultTickInterval,
		laps:     laps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle dispatches a parsed gate event. Unrecognized events are no-ops.
func (e *Engine) Handle(ev gate.Event, now time.Time) []Output {
	switch ev := ev.(type) {
	case gate.Start:
		return e.Start(now)
	case gate.Goal:
		return e.Goal(ev.IntervalMicros, now)
	default:
		return nil
	}
}

// Start begins a new run. When a run is already in progress it is abandoned
// first: its elapsed time is reported as RunAborted and not recorded.
func (e *Engine) Start(now time.Time) []Output {
	var out []Output
	if e.run != nil {
		elapsed := e.end(now)
		out = append(out, Output{Kind: RunAborted, Millis: elapsed})
	}
	e.run = &run{
		start:  now,
		ticker: e.clock.NewTicker(e.interval),
	}
	return append(out, Output{Kind: ClockUpdate, Millis: 0})
}

// Goal finishes the current run with the interval measured by the device,
// records it and returns to Idle. A goal while Idle is ignored.
func (e *Engine) Goal(intervalMicros uint64, now time.Time) []Output {
	if e.run == nil {
		return nil
	}
	e.end(now)
	final := gate.Goal{IntervalMicros: intervalMicros}.IntervalMillis()
	e.laps.Append(final)
	return []Output{
		{Kind: ClockUpdate, Millis: final},
		{Kind: LapRecorded, Millis: final},
	}
}

// Tick refreshes the running clock. It is a no-op while Idle.
func (e *Engine) Tick(now time.Time) []Output {
	if e.run == nil {
		return nil
	}
	return []Output{{Kind: ClockUpdate, Millis: millis(now.Sub(e.run.start))}}
}

// Ticks returns the channel of the current run's ticker, or nil while Idle
// so that a select on it blocks. Each run has its own channel.
func (e *Engine) Ticks() <-chan time.Time {
	if e.run == nil {
		return nil
	}
	return e.run.ticker.C()
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool {
	return e.run != nil
}

// Elapsed returns the time since the current run started.
func (e *Engine) Elapsed(now time.Time) (time.Duration, bool) {
	if e.run == nil {
		return 0, false
	}
	return now.Sub(e.run.start), true
}

// end leaves the Running state, stopping the run's ticker, and returns the
// run's elapsed milliseconds.
func (e *Engine) end(now time.Time) float64 {
	r := e.run
	e.run = nil
	r.ticker.Stop()
	return millis(now.Sub(r.start))
}

func millis(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
