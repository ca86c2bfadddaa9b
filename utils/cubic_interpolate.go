// SPDX-License-Identifier: EPL-2.0

// Package utils holds the small scalar DSP helpers shared by the resampler,
// the voice renderer and the output bridges.
package utils

// CubicInterpolate evaluates a Catmull-Rom spline through four consecutive
// samples at fractional position x between y1 (x=0) and y2 (x=1). It
// returns y1 exactly at x=0, so integer cursors reproduce the input.
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	slope1 := 0.5 * (y2 - y0)
	slope2 := 0.5 * (y3 - y1)
	d := y2 - y1

	c3 := slope1 + slope2 - 2*d
	c2 := 3*d - 2*slope1 - slope2
	return ((c3*x+c2)*x+slope1)*x + y1
}
