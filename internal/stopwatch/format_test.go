package stopwatch

import (
	"math"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		ms   float64
		want string
	}{
		{"zero", 0, "00:00.000"},
		{"sub-millisecond floors", 0.999, "00:00.000"},
		{"fractional floors", 2500.9, "00:02.500"},
		{"goal interval", 2500.0, "00:02.500"},
		{"one minute", 61234, "01:01.234"},
		{"seconds rollover", 59999, "00:59.999"},
		{"exact minute", 60000, "01:00.000"},
		{"one hour", 3_600_000, "60:00.000"},
		{"past 99 minutes", 100 * 60_000, "100:00.000"},
		{"negative clamps", -5, "00:00.000"},
		{"NaN clamps", math.NaN(), "00:00.000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.ms); got != tt.want {
				t.Errorf("Format(%v) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

func TestFormat_HugeValuesDoNotOverflow(t *testing.T) {
	got := Format(math.Inf(1))
	if got == "" || got[0] == '-' {
		t.Errorf("Format(+Inf) = %q, want a non-negative rendering", got)
	}
}

func TestFormatBest(t *testing.T) {
	if got := FormatBest(0, false); got != NoBestLap {
		t.Errorf("FormatBest(absent) = %q, want %q", got, NoBestLap)
	}
	if got := FormatBest(300, true); got != "00:00.300" {
		t.Errorf("FormatBest(300) = %q", got)
	}
}
