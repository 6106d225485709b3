// Package fixedpoint holds the saturating integer helpers and tier tables
// shared by every reputation rule.
//
// All multipliers are fixed-point percentages: 100 means 1.00x. Every tier
// table has a nonzero floor, so no rule ever divides by zero.
package fixedpoint

import (
	"math"
	"math/bits"
)

// Scale is the fixed-point denominator for every percentage multiplier.
const Scale = 100

// Seconds per tier boundary used by time-based rules.
const (
	Hour  int64 = 3600
	Day   int64 = 86_400
	Week  int64 = 7 * Day
	Month int64 = 30 * Day
)

// SatAdd returns a+b clamped to MaxUint64.
func SatAdd(a, b uint64) uint64 {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return s
}

// SatSub returns a-b clamped to zero.
func SatSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

// SatMul returns a*b clamped to MaxUint64.
func SatMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// Div truncates toward zero. A zero divisor yields zero; callers only pass
// tier values, which are never zero.
func Div(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// MulDiv computes floor(a*b/c) with a 128-bit intermediate. The result
// saturates when the quotient does not fit in 64 bits.
func MulDiv(a, b, c uint64) uint64 {
	if c == 0 {
		return 0
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, c)
	return q
}

// Pct applies a fixed-point percentage with saturation: floor(v*pct/100).
// Unlike MulDiv the product saturates before dividing.
func Pct(v, pct uint64) uint64 {
	return SatMul(v, pct) / Scale
}

// SatSubInt64 returns a-b clamped to the int64 range.
func SatSubInt64(a, b int64) int64 {
	d := a - b
	// overflow iff operands have different signs and the result sign differs from a
	if (a >= 0) != (b >= 0) && (d >= 0) != (a >= 0) {
		if a >= 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return d
}
