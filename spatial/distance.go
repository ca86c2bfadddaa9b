// SPDX-License-Identifier: EPL-2.0

package spatial

import (
	"fmt"
	"math"
	"strings"
)

// DistanceModel maps source distance to a gain in [0, 1]. The zero value
// is the inverse distance law.
type DistanceModel int

const (
	DistanceInverse DistanceModel = iota
	DistanceInverseSquare
	DistanceLinear
	DistanceExponent
	DistanceNone
)

// minRadius keeps the curves finite for point-like sources.
const minRadius = 1e-3

var distanceNames = map[DistanceModel]string{
	DistanceNone:          "none",
	DistanceInverse:       "inverse",
	DistanceInverseSquare: "inverse-square",
	DistanceLinear:        "linear",
	DistanceExponent:      "exponent",
}

func (m DistanceModel) String() string {
	if s, ok := distanceNames[m]; ok {
		return s
	}
	return fmt.Sprintf("DistanceModel(%d)", int(m))
}

// ParseDistanceModel accepts the names printed by String.
func ParseDistanceModel(s string) (DistanceModel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range distanceNames {
		if s == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDistanceModel, s)
}

// Rolloff parameterizes a distance curve.
type Rolloff struct {
	// Radius is the distance up to which the gain stays 1.
	Radius float64
	// Factor scales how fast the gain falls past Radius.
	Factor float64
	// MaxDistance stops further attenuation when positive. The linear
	// model reaches zero there.
	MaxDistance float64
}

// DefaultRolloff is a one metre radius with unit rolloff and no cap.
func DefaultRolloff() Rolloff {
	return Rolloff{Radius: 1, Factor: 1}
}

// Gain evaluates the curve at distance d. The result is 1 for d <= Radius,
// never increases with d and always lies in [0, 1].
func (m DistanceModel) Gain(d float64, r Rolloff) float32 {
	radius := max(r.Radius, minRadius)
	k := max(r.Factor, 0)
	if math.IsNaN(d) || math.IsNaN(k) {
		return 0
	}
	if d <= radius || m == DistanceNone || k == 0 {
		return 1
	}
	if r.MaxDistance > radius {
		d = min(d, r.MaxDistance)
	}

	var g float64
	switch m {
	case DistanceInverse:
		g = radius / (radius + k*(d-radius))
	case DistanceInverseSquare:
		g = radius / (radius + k*(d-radius))
		g *= g
	case DistanceLinear:
		if r.MaxDistance <= radius {
			return 1
		}
		g = 1 - k*(d-radius)/(r.MaxDistance-radius)
	case DistanceExponent:
		g = math.Pow(d/radius, -k)
	default:
		return 1
	}

	if math.IsNaN(g) {
		return 0
	}
	return float32(min(max(g, 0), 1))
}
