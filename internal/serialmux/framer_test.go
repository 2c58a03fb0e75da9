package serialmux

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// frame feeds every chunk, drains each sequence and flushes at the end.
func frame(chunks []string) []string {
	var f LineFramer
	var lines []string
	for _, c := range chunks {
		lines = append(lines, slices.Collect(f.Feed(c))...)
	}
	if tail, ok := f.Flush(); ok {
		lines = append(lines, tail)
	}
	return lines
}

func TestLineFramer_Feed(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{"single line", []string{"start\n"}, []string{"start"}},
		{"split line", []string{"s", "tart\n"}, []string{"start"}},
		{"two lines one chunk", []string{"start\ngoal,12\n"}, []string{"start", "goal,12"}},
		{"terminator alone", []string{"goal,12", "\n"}, []string{"goal,12"}},
		{"empty line", []string{"\n"}, []string{""}},
		{"crlf keeps carriage return", []string{"start\r\n"}, []string{"start\r"}},
		{"unterminated tail flushed", []string{"start\ngo", "al,5"}, []string{"start", "goal,5"}},
		{"nothing", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, frame(tt.chunks)); diff != "" {
				t.Errorf("lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLineFramer_ChunkBoundariesDoNotMatter(t *testing.T) {
	const stream = "start\ngoal,2500000\nnoise\nstart\nstart\ngoal,1\npartial"
	want := frame([]string{stream})

	// every two-way split
	for i := 0; i <= len(stream); i++ {
		got := frame([]string{stream[:i], stream[i:]})
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("split at %d changed output (-want +got):\n%s", i, diff)
		}
	}

	// one byte at a time
	if diff := cmp.Diff(want, frame(strings.Split(stream, ""))); diff != "" {
		t.Errorf("byte-wise feed changed output (-want +got):\n%s", diff)
	}
}

func TestLineFramer_Buffered(t *testing.T) {
	var f LineFramer
	for range f.Feed("goal,12") {
		t.Fatal("no complete line expected")
	}
	if got := f.Buffered(); got != len("goal,12") {
		t.Errorf("Buffered() = %d, want %d", got, len("goal,12"))
	}
	if lines := slices.Collect(f.Feed("3\n")); !slices.Equal(lines, []string{"goal,123"}) {
		t.Errorf("lines = %q", lines)
	}
	if got := f.Buffered(); got != 0 {
		t.Errorf("Buffered() = %d after full line, want 0", got)
	}
}

func TestLineFramer_FlushEmpty(t *testing.T) {
	var f LineFramer
	if _, ok := f.Flush(); ok {
		t.Error("Flush() on empty framer reported a line")
	}

	f.Feed("x")
	if line, ok := f.Flush(); !ok || line != "x" {
		t.Errorf("Flush() = %q, %v; want \"x\", true", line, ok)
	}
	if _, ok := f.Flush(); ok {
		t.Error("second Flush() reported a line")
	}
}

func TestLineFramer_EarlyBreakKeepsRemainingLines(t *testing.T) {
	var f LineFramer
	for line := range f.Feed("a\nb\nc\n") {
		if line != "a" {
			t.Fatalf("first line = %q, want a", line)
		}
		break
	}

	got := slices.Collect(f.Feed(""))
	if diff := cmp.Diff([]string{"b", "c"}, got); diff != "" {
		t.Errorf("remaining lines mismatch (-want +got):\n%s", diff)
	}
}
