package display

import (
	"fmt"
	"io"
	"sync"
)

const colorReset = "\033[0m"
const colorCyan = "\033[36m"
const colorBoldGreen = "\033[1;32m"
const colorYellow = "\033[33m"

// Console writes the stopwatch to a terminal. The running clock is redrawn
// in place with a carriage return; laps and best-lap changes are printed on
// their own lines.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	color   bool
	laps    int
	midLine bool
}

// NewConsole returns a Console writing to w. When color is set, ANSI escape
// codes highlight the clock and the best lap.
func NewConsole(w io.Writer, color bool) *Console {
	return &Console{w: w, color: color}
}

func (c *Console) paint(color, text string) string {
	if !c.color {
		return text
	}
	return color + text + colorReset
}

// endLine terminates a partially drawn clock line.
func (c *Console) endLine() {
	if c.midLine {
		fmt.Fprint(c.w, "\n")
		c.midLine = false
	}
}

func (c *Console) SetClock(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "\r%s", c.paint(colorCyan, text))
	c.midLine = true
}

func (c *Console) SetBestLap(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLine()
	fmt.Fprintf(c.w, "best  %s\n", c.paint(colorBoldGreen, text))
}

func (c *Console) AppendLap(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLine()
	c.laps++
	fmt.Fprintf(c.w, "lap %-3d %s\n", c.laps, text)
}

func (c *Console) ClearLaps() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLine()
	c.laps = 0
	fmt.Fprintln(c.w, c.paint(colorYellow, "laps cleared"))
}
