package serialmux

import (
	"iter"
	"strings"
)

// LineFramer reassembles newline-terminated lines from arbitrarily split
// text chunks. The only state is the text received after the last newline;
// feeding the same chunks in the same order always yields the same lines.
type LineFramer struct {
	pending string
}

// Feed appends chunk and returns the complete lines now available, without
// their terminating '\n'. Lines are cut from the buffer as the sequence is
// consumed; lines left unconsumed are produced by the next Feed.
func (f *LineFramer) Feed(chunk string) iter.Seq[string] {
	f.pending += chunk
	return func(yield func(string) bool) {
		for {
			i := strings.IndexByte(f.pending, '\n')
			if i < 0 {
				return
			}
			line := f.pending[:i]
			f.pending = f.pending[i+1:]
			if !yield(line) {
				return
			}
		}
	}
}

// Flush returns the unterminated tail at end of stream and clears it. ok is
// false when nothing is buffered. Drain the sequence from Feed first.
func (f *LineFramer) Flush() (line string, ok bool) {
	if f.pending == "" {
		return "", false
	}
	line = f.pending
	f.pending = ""
	return line, true
}

// Buffered returns the number of bytes waiting for a terminator.
func (f *LineFramer) Buffered() int {
	return len(f.pending)
}
