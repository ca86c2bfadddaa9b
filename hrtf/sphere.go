// SPDX-License-Identifier: EPL-2.0

package hrtf

import (
	"fmt"
	"math"
)

// Default grid spacing in degrees.
const (
	DefaultAzimuthStep   = 5.0
	DefaultElevationStep = 5.0
)

// Point is one measured direction of a dataset. Angles are in degrees:
// azimuth 0 ahead and positive to the right, elevation positive upwards.
type Point struct {
	Azimuth   float64
	Elevation float64
	Left      []float32
	Right     []float32
}

type sphereOptions struct {
	azStep float64
	elStep float64
}

// SphereOption configures NewSphere.
type SphereOption func(*sphereOptions)

// WithGrid sets the azimuth and elevation spacing of the arena in degrees.
func WithGrid(azStep, elStep float64) SphereOption {
	return func(o *sphereOptions) {
		if azStep > 0 {
			o.azStep = azStep
		}
		if elStep > 0 {
			o.elStep = elStep
		}
	}
}

// Sphere is an arena of HRIR pairs on a regular azimuth/elevation grid.
// Every node holds the pair of the nearest dataset direction; queries blend
// the four surrounding nodes. A Sphere is immutable and safe to share.
type Sphere struct {
	sampleRate int
	irLen      int

	azCount int
	azStep  float64
	elCount int
	elStep  float64
	elMin   float64
	elMax   float64

	// node (el, az) starts at ((el*azCount)+az)*2*irLen: left IR, then right IR
	data []float32
}

// NewSphere builds the arena from dataset points. Shorter responses are
// zero padded to the longest one.
func NewSphere(sampleRate int, points []Point, opts ...SphereOption) (*Sphere, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidRate
	}
	if len(points) == 0 {
		return nil, ErrNoPoints
	}

	o := sphereOptions{azStep: DefaultAzimuthStep, elStep: DefaultElevationStep}
	for _, opt := range opts {
		opt(&o)
	}

	irLen := 0
	elMin, elMax := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		if p.Elevation < -90 || p.Elevation > 90 || math.IsNaN(p.Elevation) || math.IsNaN(p.Azimuth) {
			return nil, fmt.Errorf("%w: azimuth %v, elevation %v", ErrInvalidDirection, p.Azimuth, p.Elevation)
		}
		irLen = max(irLen, len(p.Left), len(p.Right))
		elMin = min(elMin, p.Elevation)
		elMax = max(elMax, p.Elevation)
	}
	if irLen == 0 {
		return nil, ErrEmptyIR
	}

	s := &Sphere{
		sampleRate: sampleRate,
		irLen:      irLen,
		azCount:    max(1, int(math.Round(360/o.azStep))),
		elMin:      elMin,
		elMax:      elMax,
	}
	s.azStep = 360 / float64(s.azCount)
	s.elCount = max(1, int(math.Round((elMax-elMin)/o.elStep))+1)
	if s.elCount > 1 {
		s.elStep = (elMax - elMin) / float64(s.elCount-1)
	}
	s.data = make([]float32, s.azCount*s.elCount*2*irLen)

	dirs := make([]vec, len(points))
	for i, p := range points {
		dirs[i] = direction(p.Azimuth, p.Elevation)
	}

	for e := range s.elCount {
		for a := range s.azCount {
			want := direction(float64(a)*s.azStep, s.elMin+float64(e)*s.elStep)
			best, bestDot := 0, math.Inf(-1)
			for i, d := range dirs {
				if dot := want.dot(d); dot > bestDot {
					best, bestDot = i, dot
				}
			}
			node := s.node(e, a)
			copy(node[:irLen], points[best].Left)
			copy(node[irLen:], points[best].Right)
		}
	}

	return s, nil
}

func (s *Sphere) node(e, a int) []float32 {
	off := (e*s.azCount + a) * 2 * s.irLen
	return s.data[off : off+2*s.irLen]
}

func (s *Sphere) SampleRate() int { return s.sampleRate }

// IRLength is the number of taps of every response.
func (s *Sphere) IRLength() int { return s.irLen }

// Coverage reports the elevation range in degrees the dataset measured.
// Queries outside it are clamped to the nearest covered elevation.
func (s *Sphere) Coverage() (minEl, maxEl float64) { return s.elMin, s.elMax }

// Sample writes the interpolated pair for a direction in degrees into left
// and right, each at least IRLength long. It does not allocate.
func (s *Sphere) Sample(azimuth, elevation float64, left, right []float32) {
	left, right = left[:s.irLen], right[:s.irLen]

	az := math.Mod(azimuth, 360)
	if az < 0 {
		az += 360
	}
	if math.IsNaN(az) {
		az = 0
	}
	fa := az / s.azStep
	a0 := int(fa) % s.azCount
	a1 := (a0 + 1) % s.azCount
	wa := float32(fa - math.Floor(fa))

	var e0, e1 int
	var we float32
	if s.elCount > 1 {
		el := min(max(elevation, s.elMin), s.elMax)
		if math.IsNaN(el) {
			el = s.elMin
		}
		fe := (el - s.elMin) / s.elStep
		e0 = min(int(fe), s.elCount-2)
		e1 = e0 + 1
		we = float32(fe - float64(e0))
	}

	n00, n01 := s.node(e0, a0), s.node(e0, a1)
	n10, n11 := s.node(e1, a0), s.node(e1, a1)
	w00 := (1 - wa) * (1 - we)
	w01 := wa * (1 - we)
	w10 := (1 - wa) * we
	w11 := wa * we

	n := s.irLen
	for k := range n {
		left[k] = w00*n00[k] + w01*n01[k] + w10*n10[k] + w11*n11[k]
		right[k] = w00*n00[n+k] + w01*n01[n+k] + w10*n10[n+k] + w11*n11[n+k]
	}
}

type vec struct{ x, y, z float64 }

func (v vec) dot(o vec) float64 { return v.x*o.x + v.y*o.y + v.z*o.z }

// direction converts listener-space angles in degrees to a unit vector
// with X right, Y up and Z ahead.
func direction(azDeg, elDeg float64) vec {
	az, el := azDeg*math.Pi/180, elDeg*math.Pi/180
	return vec{
		x: math.Sin(az) * math.Cos(el),
		y: math.Sin(el),
		z: math.Cos(az) * math.Cos(el),
	}
}
