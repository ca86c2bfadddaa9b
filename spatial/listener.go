// SPDX-License-Identifier: EPL-2.0

package spatial

import "math"

// DefaultEarOffset is half of an average inter-aural distance.
const DefaultEarOffset = 0.0875

var (
	defaultForward = Vec3{Z: 1}
	defaultUp      = Vec3{Y: 1}
)

// Listener is the single point of view all positional sources are rendered
// for. Right is Up × Forward, so with the defaults +X is to the right.
type Listener struct {
	Position  Vec3
	Forward   Vec3
	Up        Vec3
	EarOffset float64
}

// DefaultListener sits at the origin looking down +Z with +Y up.
func DefaultListener() Listener {
	return Listener{
		Forward:   defaultForward,
		Up:        defaultUp,
		EarOffset: DefaultEarOffset,
	}
}

// Orthonormalize returns l with a unit Forward and an Up made perpendicular
// to it. Degenerate orientations fall back to the default axes.
func (l Listener) Orthonormalize() Listener {
	f := l.Forward.Normalize()
	if f == (Vec3{}) {
		f = defaultForward
	}
	right := l.Up.Cross(f).Normalize()
	if right == (Vec3{}) {
		// Up is zero or parallel to Forward; pick any perpendicular.
		right = defaultUp.Cross(f).Normalize()
		if right == (Vec3{}) {
			right = Vec3{X: 1}
		}
	}
	l.Forward = f
	l.Up = f.Cross(right)
	if l.EarOffset < 0 || math.IsNaN(l.EarOffset) {
		l.EarOffset = 0
	}
	if !l.Position.IsFinite() {
		l.Position = Vec3{}
	}
	return l
}

// Right is the unit vector pointing out of the right ear.
// The listener must be orthonormalized.
func (l Listener) Right() Vec3 { return l.Up.Cross(l.Forward) }

// ToLocal expresses world point p in listener space: X right, Y up, Z ahead.
func (l Listener) ToLocal(p Vec3) Vec3 {
	rel := p.Sub(l.Position)
	return Vec3{rel.Dot(l.Right()), rel.Dot(l.Up), rel.Dot(l.Forward)}
}

// Direction returns the azimuth and elevation of p in radians and its
// distance from the head centre. Azimuth is 0 straight ahead and positive to
// the right; elevation is positive above the horizontal plane.
func (l Listener) Direction(p Vec3) (azimuth, elevation, distance float64) {
	local := l.ToLocal(p)
	distance = local.Len()
	if distance == 0 {
		return 0, 0, 0
	}
	azimuth = math.Atan2(local.X, local.Z)
	elevation = math.Atan2(local.Y, math.Hypot(local.X, local.Z))
	return azimuth, elevation, distance
}

// Ears returns the world positions of the left and right ear.
func (l Listener) Ears() (left, right Vec3) {
	r := l.Right().Scale(l.EarOffset)
	return l.Position.Sub(r), l.Position.Add(r)
}
