// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// Float32ToInt16 clamps x to [-1, 1] and scales it symmetrically to int16.
func Float32ToInt16(x float32) int16 {
	return int16(Clamp(x, -1, 1) * math.MaxInt16)
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// DBToGain converts decibels to a linear amplitude factor.
func DBToGain(db float64) float32 {
	return float32(math.Pow(10, db/20))
}
