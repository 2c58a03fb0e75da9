// Package gate parses the line protocol spoken by the race gate.
//
// The device sends one message per line:
//
//	start
//	goal,<interval in microseconds>
//
// Anything else is classified as Unrecognized and ignored by the stopwatch.
package gate

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	startToken = "start"
	goalPrefix = "goal,"
)

// Event is a message received from the gate. It is one of Start, Goal or
// Unrecognized.
type Event interface {
	fmt.Stringer
	gateEvent()
}

// Start signals that a competitor passed the start gate.
type Start struct{}

// Goal signals that a competitor passed the finish gate. IntervalMicros is the
// start-to-finish interval measured by the device.
type Goal struct {
	IntervalMicros uint64
}

// Unrecognized carries a line that matched neither known shape.
type Unrecognized struct {
	Raw string
}

func (Start) gateEvent()        {}
func (Goal) gateEvent()         {}
func (Unrecognized) gateEvent() {}

func (Start) String() string          { return startToken }
func (g Goal) String() string         { return goalPrefix + strconv.FormatUint(g.IntervalMicros, 10) }
func (u Unrecognized) String() string { return fmt.Sprintf("unrecognized(%q)", u.Raw) }

// IntervalMillis converts the device interval to fractional milliseconds.
func (g Goal) IntervalMillis() float64 {
	return float64(g.IntervalMicros) / 1000.0
}

// Parse classifies a single, already trimmed line. It never fails: lines that
// are not exactly "start" or "goal,<uint>" become Unrecognized.
func Parse(line string) Event {
	if line == startToken {
		return Start{}
	}
	if strings.HasPrefix(line, goalPrefix) {
		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			return Unrecognized{Raw: line}
		}
		us, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return Unrecognized{Raw: line}
		}
		return Goal{IntervalMicros: us}
	}
	return Unrecognized{Raw: line}
}

// Kind returns a short label for an event, used by the line journal.
func Kind(ev Event) string {
	switch ev.(type) {
	case Start:
		return "start"
	case Goal:
		return "goal"
	default:
		return "unrecognized"
	}
}
