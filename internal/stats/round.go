package stats

import "math"

// RoundTo rounds v to the given number of decimals, halves to even.
func RoundTo(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*scale) / scale
}

// Percent returns part/total as a percentage: the ratio is rounded to
// three decimals first, then scaled and tidied to one decimal.
// A zero total yields 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	ratio := RoundTo(float64(part)/float64(total), 3)
	return RoundTo(ratio*100, 1)
}

// SafeDivide divides a by b. ok is false when b is zero.
func SafeDivide(a, b float64) (v float64, ok bool) {
	if b == 0 {
		return 0, false
	}
	return a / b, true
}
