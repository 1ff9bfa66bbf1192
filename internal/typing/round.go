package typing

import (
	"fmt"
	"math"
	"strings"
)

// RoundingMode selects how rates are rounded to two decimal places.
type RoundingMode int

const (
	// HalfAwayFromZero rounds 0.125 to 0.13 and -0.125 to -0.13.
	HalfAwayFromZero RoundingMode = iota
	// HalfEven rounds ties to the nearest even hundredth (0.125 to 0.12).
	HalfEven
)

const decimals = 100

// String returns the config name of the mode.
func (m RoundingMode) String() string {
	switch m {
	case HalfEven:
		return "half-even"
	default:
		return "half-away-from-zero"
	}
}

// ParseRoundingMode maps a config value to a RoundingMode.
// An empty string selects the default.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "half-away-from-zero", "half-up":
		return HalfAwayFromZero, nil
	case "half-even", "bankers":
		return HalfEven, nil
	default:
		return HalfAwayFromZero, fmt.Errorf("unknown rounding mode %q", s)
	}
}

// Round rounds v to two decimal places. NaN and infinities become 0.
// Values too large to scale are returned as is; they carry no fraction.
//
// The scaled value is first snapped to 9 significant decimals so that
// binary noise such as 1.005*100 = 100.49999999999999 does not flip a tie.
func Round(v float64, mode RoundingMode) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	scaled := v * decimals
	if math.IsInf(scaled, 0) {
		return v
	}
	snapped := math.Round(scaled*1e9) / 1e9
	if math.Abs(snapped-scaled) < 1e-9*math.Max(1, math.Abs(scaled)) {
		scaled = snapped
	}
	var r float64
	if mode == HalfEven {
		r = math.RoundToEven(scaled)
	} else {
		r = math.Round(scaled)
	}
	out := r / decimals
	if out == 0 {
		// Drop negative zero.
		return 0
	}
	return out
}
