// SPDX-License-Identifier: EPL-2.0

package hrtf

import "math"

const (
	defaultHeadRadius   = 0.0875 // metres
	defaultSpeedOfSound = 343.0  // metres per second
	defaultSphericalIR  = 128

	// head shadow parameters of the Brown-Duda spherical model
	alphaMin = 0.1
	thetaMin = 150.0 * math.Pi / 180
)

type sphericalOptions struct {
	headRadius   float64
	speedOfSound float64
	irLen        int
	azStep       float64
	elStep       float64
	elMin        float64
	elMax        float64
}

// SphericalOption configures Spherical.
type SphericalOption func(*sphericalOptions)

// WithHeadRadius sets the sphere radius in metres.
func WithHeadRadius(r float64) SphericalOption {
	return func(o *sphericalOptions) {
		if r > 0 {
			o.headRadius = r
		}
	}
}

// WithIRLength sets the number of taps per response.
func WithIRLength(n int) SphericalOption {
	return func(o *sphericalOptions) {
		if n > 0 {
			o.irLen = n
		}
	}
}

// WithSphericalGrid sets the generated directions in degrees.
func WithSphericalGrid(azStep, elStep, elMin, elMax float64) SphericalOption {
	return func(o *sphericalOptions) {
		if azStep > 0 && elStep > 0 && elMin <= elMax && elMin >= -90 && elMax <= 90 {
			o.azStep, o.elStep, o.elMin, o.elMax = azStep, elStep, elMin, elMax
		}
	}
}

// Spherical synthesizes a dataset from a rigid spherical head: each ear
// gets the Woodworth time of arrival and a first-order head-shadow filter
// whose high-frequency gain depends on the angle between the source and
// the ear axis. It stands in when no measured HRIRs are available.
func Spherical(sampleRate int, opts ...SphericalOption) (*Sphere, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidRate
	}

	o := sphericalOptions{
		headRadius:   defaultHeadRadius,
		speedOfSound: defaultSpeedOfSound,
		irLen:        defaultSphericalIR,
		azStep:       DefaultAzimuthStep,
		elStep:       DefaultElevationStep * 2,
		elMin:        -40,
		elMax:        90,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var points []Point
	for el := o.elMin; el <= o.elMax+1e-9; el += o.elStep {
		for az := 0.0; az < 360-1e-9; az += o.azStep {
			d := direction(az, el)
			points = append(points, Point{
				Azimuth:   az,
				Elevation: el,
				Left:      earResponse(math.Acos(-d.x), sampleRate, o),
				Right:     earResponse(math.Acos(d.x), sampleRate, o),
			})
		}
	}

	return NewSphere(sampleRate, points, WithGrid(o.azStep, o.elStep))
}

// earResponse is the impulse response of one ear for a source theta
// radians away from that ear's axis.
func earResponse(theta float64, sampleRate int, o sphericalOptions) []float32 {
	a, c, fs := o.headRadius, o.speedOfSound, float64(sampleRate)

	// Woodworth delay relative to the head centre, offset to stay causal.
	var delay float64
	if theta < math.Pi/2 {
		delay = a / c * (1 - math.Cos(theta))
	} else {
		delay = a / c * (1 + theta - math.Pi/2)
	}
	delay *= fs

	// One-zero one-pole shadow filter (1 + α s/2ω0) / (1 + s/2ω0),
	// discretized with the bilinear transform.
	alpha := (1 + alphaMin/2) + (1-alphaMin/2)*math.Cos(theta/thetaMin*math.Pi)
	k := fs * a / c
	b0 := (1 + alpha*k) / (1 + k)
	b1 := (1 - alpha*k) / (1 + k)
	a1 := (1 - k) / (1 + k)

	ir := make([]float32, o.irLen)
	d0 := int(delay)
	frac := delay - float64(d0)
	var xPrev, yPrev float64
	for n := range o.irLen {
		var x float64
		switch n {
		case d0:
			x = 1 - frac
		case d0 + 1:
			x = frac
		}
		y := b0*x + b1*xPrev - a1*yPrev
		ir[n] = float32(y)
		xPrev, yPrev = x, y
	}
	return ir
}
