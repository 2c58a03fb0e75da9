// Package display renders stopwatch output. Every sink receives text that is
// already formatted and keeps no timing state of its own.
package display

// Sink is a destination for the clock, best-lap and lap-list text.
type Sink interface {
	SetClock(text string)
	SetBestLap(text string)
	AppendLap(text string)
}

// Multi fans each update out to several sinks in order.
type Multi []Sink

func (m Multi) SetClock(text string) {
	for _, s := range m {
		s.SetClock(text)
	}
}

func (m Multi) SetBestLap(text string) {
	for _, s := range m {
		s.SetBestLap(text)
	}
}

func (m Multi) AppendLap(text string) {
	for _, s := range m {
		s.AppendLap(text)
	}
}

// ClearLaps empties the lap list of every sink that keeps one.
func (m Multi) ClearLaps() {
	for _, s := range m {
		if c, ok := s.(interface{ ClearLaps() }); ok {
			c.ClearLaps()
		}
	}
}
