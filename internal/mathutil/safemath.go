// Package mathutil provides guarded arithmetic helpers for statistics.
// Every function maps invalid input (zero denominators, NaN, Inf) to a
// safe default instead of letting the bad value propagate into stored
// stats or API responses.
package mathutil

import "math"

// SafePercentage returns round(num/den*100) clamped to sane input, or 0
// when the denominator is not positive or the numerator is negative.
func SafePercentage(num, den int) int {
	if den <= 0 || num < 0 {
		return 0
	}
	result := float64(num) / float64(den) * 100
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return int(math.Round(result))
}

// SafeRound rounds v to the given number of decimal digits, returning 0
// for NaN or infinite input.
func SafeRound(v float64, digits int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}

// SafeAverage averages the finite values of vs, ignoring NaN and Inf
// entries. An empty or all-invalid slice averages to 0.
func SafeAverage(vs []float64) float64 {
	var sum float64
	var n int
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// SafeDivision returns num/den, or 0 when the denominator is zero or the
// result is not finite.
func SafeDivision(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	result := num / den
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result
}

// IsSafeNumber reports whether v is neither NaN nor infinite.
func IsSafeNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
