// Package session ties one gate connection to one stopwatch: it frames the
// device stream into lines, parses them, drives the stopwatch engine and
// pushes the results to the display sinks.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lap.timer/internal/gate"
	"github.com/banshee-data/lap.timer/internal/monitoring"
	"github.com/banshee-data/lap.timer/internal/serialmux"
	"github.com/banshee-data/lap.timer/internal/stopwatch"
	"github.com/banshee-data/lap.timer/internal/timeutil"
)

// Source delivers decoded text from the gate. ReadChunk returns io.EOF at end
// of stream. *serialmux.SerialMux implements it.
type Source interface {
	ReadChunk(ctx context.Context) (string, error)
}

// Display receives the formatted text to show. Implementations perform no
// timing logic of their own.
type Display interface {
	SetClock(text string)
	SetBestLap(text string)
	AppendLap(text string)
}

// LapListClearer is implemented by displays that keep a lap list which must
// be emptied by the clear command.
type LapListClearer interface {
	ClearLaps()
}

// Journal records every non-empty device line.
type Journal interface {
	RecordLine(sessionID string, receivedAt time.Time, line, kind string) error
}

// Session is the state owned by one connected gate: the line framer, the
// stopwatch engine and the lap ledger. All transitions are serialised by mu,
// so the read loop, the tick loop and the clear command never interleave.
//
// While a run is in progress a tick loop refreshes the clock. It is started
// when the engine enters Running and stopped when it leaves, independent of
// whether the gate stream is still connected.
type Session struct {
	id       string
	clock    timeutil.Clock
	interval time.Duration
	display  Display
	journal  Journal
	observe  func(line string)

	mu     sync.Mutex
	framer serialmux.LineFramer
	ledger *stopwatch.Ledger
	engine *stopwatch.Engine

	ticks     <-chan time.Time // serviced by the current tick loop
	stopTicks chan struct{}
	closed    bool
	wg        sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the real clock, mainly for tests.
func WithClock(c timeutil.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithDisplay sets where formatted clock, best-lap and lap text is sent.
func WithDisplay(d Display) Option {
	return func(s *Session) { s.display = d }
}

// WithJournal records device lines to j.
func WithJournal(j Journal) Option {
	return func(s *Session) { s.journal = j }
}

// WithLineObserver calls f with every trimmed, non-empty line before it is
// parsed. The serial mux uses this to feed its tail subscribers.
func WithLineObserver(f func(line string)) Option {
	return func(s *Session) { s.observe = f }
}

// WithTickInterval sets how often the running clock is refreshed.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.interval = d }
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New creates an idle session and renders the initial display: a zero clock
// and no best lap.
func New(opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		clock:    timeutil.RealClock{},
		interval: stopwatch.DefaultTickInterval,
		display:  nopDisplay{},
		ledger:   stopwatch.NewLedger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = stopwatch.NewEngine(s.clock, s.ledger, stopwatch.WithTickInterval(s.interval))

	s.display.SetClock(stopwatch.Format(0))
	s.display.SetBestLap(stopwatch.NoBestLap)
	return s
}

// ID returns the session identifier used in the journal.
func (s *Session) ID() string {
	return s.id
}

// Run reads src until end of stream, ctx cancellation, or a read failure.
// End of stream flushes any unterminated final line. Cancellation and end of
// stream return nil; a read failure is returned once and not retried. The
// stopwatch keeps its state when Run returns: a run in progress keeps
// counting, and a later Run on a new source can finish it.
//
// ReadChunk may stay blocked after cancellation; close the source to release
// it.
func (s *Session) Run(ctx context.Context, src Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		for {
			chunk, err := src.ReadChunk(ctx)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case chunk := <-chunks:
			s.Feed(chunk)

		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				s.Flush()
				return nil
			}
			return fmt.Errorf("gate stream read failed: %w", err)
		}
	}
}

// Feed frames chunk and handles every complete line.
func (s *Session) Feed(chunk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for line := range s.framer.Feed(chunk) {
		s.handleLine(line)
	}
	s.syncTicks()
}

// Flush handles the unterminated tail left at end of stream.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if line, ok := s.framer.Flush(); ok {
		s.handleLine(line)
	}
	s.syncTicks()
}

// Tick refreshes the running clock. It is a no-op while Idle.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(s.engine.Tick(s.clock.Now()))
}

// Close stops the tick loop and waits for it to exit. The stopwatch state is
// left as it is, but the clock is no longer refreshed.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopTickLoop()
	s.mu.Unlock()
	s.wg.Wait()
}

// syncTicks starts or stops the tick loop so that it services exactly the
// ticker of the current run. Callers hold mu.
func (s *Session) syncTicks() {
	ticks := s.engine.Ticks()
	if ticks == s.ticks {
		return
	}
	s.stopTickLoop()
	if ticks == nil || s.closed {
		return
	}
	s.ticks = ticks
	s.stopTicks = make(chan struct{})
	s.wg.Add(1)
	go s.tickLoop(ticks, s.stopTicks)
}

func (s *Session) stopTickLoop() {
	if s.stopTicks != nil {
		close(s.stopTicks)
	}
	s.ticks, s.stopTicks = nil, nil
}

func (s *Session) tickLoop(ticks <-chan time.Time, stop <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-stop:
			return
		case <-ticks:
			s.mu.Lock()
			// a tick that raced with the end of its run is dropped
			if s.ticks == ticks {
				s.apply(s.engine.Tick(s.clock.Now()))
			}
			s.mu.Unlock()
		}
	}
}

// Clear empties the lap ledger and resets the best-lap display.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.ledger.Len()
	s.ledger.Clear()
	s.display.SetBestLap(stopwatch.NoBestLap)
	if c, ok := s.display.(LapListClearer); ok {
		c.ClearLaps()
	}
	monitoring.Logf("cleared %d laps", n)
}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	ID        string            `json:"id"`
	Running   bool              `json:"running"`
	ElapsedMs float64           `json:"elapsed_ms"`
	Laps      []float64         `json:"laps_ms"`
	BestMs    *float64          `json:"best_ms"`
	Summary   stopwatch.Summary `json:"summary"`
}

// Snapshot returns the current stopwatch and ledger state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:      s.id,
		Running: s.engine.Running(),
		Laps:    s.ledger.All(),
		Summary: s.ledger.Summary(),
	}
	if d, ok := s.engine.Elapsed(s.clock.Now()); ok {
		snap.ElapsedMs = float64(d) / float64(time.Millisecond)
	}
	if best, ok := s.ledger.Best(); ok {
		snap.BestMs = &best
	}
	return snap
}

func (s *Session) handleLine(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}
	if s.observe != nil {
		s.observe(line)
	}

	now := s.clock.Now()
	ev := gate.Parse(line)
	if s.journal != nil {
		if err := s.journal.RecordLine(s.id, now, line, gate.Kind(ev)); err != nil {
			monitoring.Logf("failed to journal line %q: %v", line, err)
		}
	}

	switch ev := ev.(type) {
	case gate.Unrecognized:
		monitoring.Debugf("ignoring unrecognized line %q", ev.Raw)
		return
	case gate.Goal:
		if !s.engine.Running() {
			monitoring.Debugf("ignoring %s: stopwatch is idle", ev)
			return
		}
	}
	s.apply(s.engine.Handle(ev, now))
}

func (s *Session) apply(outputs []stopwatch.Output) {
	for _, out := range outputs {
		text := stopwatch.Format(out.Millis)
		switch out.Kind {
		case stopwatch.ClockUpdate:
			s.display.SetClock(text)
		case stopwatch.RunAborted:
			s.display.SetClock(text)
			monitoring.Logf("start received while running; discarded run of %s", text)
		case stopwatch.LapRecorded:
			if best, ok := s.ledger.Best(); ok && best == out.Millis {
				s.display.SetBestLap(text)
			}
			s.display.AppendLap(text)
			monitoring.Logf("lap %d: %s", s.ledger.Len(), text)
		}
	}
}

type nopDisplay struct{}

func (nopDisplay) SetClock(string)   {}
func (nopDisplay) SetBestLap(string) {}
func (nopDisplay) AppendLap(string)  {}
