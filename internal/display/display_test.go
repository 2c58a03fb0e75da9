package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

type lastText struct{ clock, best, lap string }

func (l *lastText) SetClock(t string)   { l.clock = t }
func (l *lastText) SetBestLap(t string) { l.best = t }
func (l *lastText) AppendLap(t string)  { l.lap = t }

func TestMulti(t *testing.T) {
	plain := &lastText{}
	board := NewBoard()
	var buf bytes.Buffer
	m := Multi{plain, board, NewConsole(&buf, false)}

	m.SetClock("00:01.000")
	m.SetBestLap("00:01.000")
	m.AppendLap("00:01.000")

	assert.Equal(t, lastText{"00:01.000", "00:01.000", "00:01.000"}, *plain)
	assert.Equal(t, []string{"00:01.000"}, board.State().Laps)

	// sinks without a lap list are skipped
	m.ClearLaps()
	assert.Empty(t, board.State().Laps)
	assert.Contains(t, buf.String(), "laps cleared")
	assert.Equal(t, "00:01.000", plain.lap)
}
