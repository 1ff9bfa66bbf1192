package typing

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		in   float64
		mode RoundingMode
		want float64
	}{
		{0.125, HalfAwayFromZero, 0.13},
		{0.125, HalfEven, 0.12},
		{0.135, HalfEven, 0.14},
		{-0.125, HalfAwayFromZero, -0.13},
		{1.005, HalfAwayFromZero, 1.01},
		{66.666666, HalfAwayFromZero, 66.67},
		{2.0 / 3.0 * 100, HalfEven, 66.67},
		{-0.001, HalfAwayFromZero, 0},
		{math.NaN(), HalfAwayFromZero, 0},
		{math.Inf(1), HalfEven, 0},
		{1e308, HalfAwayFromZero, 1e308},
		{-1e308, HalfEven, -1e308},
	}
	for _, tt := range tests {
		if got := Round(tt.in, tt.mode); got != tt.want {
			t.Fatalf("Round(%v, %s) = %v, want %v", tt.in, tt.mode, got, tt.want)
		}
	}
	if got := Round(-0.001, HalfAwayFromZero); math.Signbit(got) {
		t.Fatalf("expected positive zero")
	}
}

func TestParseRoundingMode(t *testing.T) {
	for in, want := range map[string]RoundingMode{
		"":                    HalfAwayFromZero,
		"half-away-from-zero": HalfAwayFromZero,
		"Half-Even":           HalfEven,
		"bankers":             HalfEven,
	} {
		got, err := ParseRoundingMode(in)
		if err != nil {
			t.Fatalf("ParseRoundingMode(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseRoundingMode(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseRoundingMode("ceil"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
