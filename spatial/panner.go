// SPDX-License-Identifier: EPL-2.0

package spatial

import "math"

// Gains is a pair of per-ear amplitude factors.
type Gains struct {
	Left, Right float32
}

// EqualPower maps pan in [-1, 1] (full left to full right) onto the
// constant-power sine/cosine law: L² + R² = 1 everywhere.
func EqualPower(pan float32) Gains {
	pan = min(max(pan, -1), 1)
	theta := (float64(pan) + 1) * math.Pi / 4
	// cos(π/2 - θ) rather than sin θ keeps the centre exactly symmetric
	return Gains{Left: float32(math.Cos(theta)), Right: float32(math.Cos(math.Pi/2 - theta))}
}

// Balance is the linear stereo balance used for non-positional sources:
// the centre leaves both channels untouched and each side fades the other
// channel out.
func Balance(pan float32) Gains {
	pan = min(max(pan, -1), 1)
	return Gains{Left: min(1, 1-pan), Right: min(1, 1+pan)}
}

// Panner renders a mono signal to stereo with equal-power panning and
// per-ear distance attenuation. Gains ramp linearly across each block from
// the previous block's values, so moving sources do not click.
type Panner struct {
	prev   Gains
	primed bool
}

// Target computes the gains for a source at pos. Azimuth drives the pan
// (pan = sin azimuth, so sources behind mirror those in front), and each
// ear is attenuated by its own distance to the source.
func (p *Panner) Target(l Listener, pos Vec3, model DistanceModel, r Rolloff) Gains {
	az, _, _ := l.Direction(pos)
	g := EqualPower(float32(math.Sin(az)))

	leftEar, rightEar := l.Ears()
	g.Left *= model.Gain(pos.Distance(leftEar), r)
	g.Right *= model.Gain(pos.Distance(rightEar), r)
	return g
}

// Process writes len(mono) interleaved stereo frames to out, ramping from
// the previous gains to target. out must hold 2*len(mono) samples.
func (p *Panner) Process(mono, out []float32, target Gains) {
	from := p.prev
	if !p.primed {
		from = target
		p.primed = true
	}
	RampStereo(mono, out, from, target)
	p.prev = target
}

// Reset forgets the previous gains; the next block starts at its target.
func (p *Panner) Reset() { p.primed = false }

// RampStereo writes mono to interleaved stereo while interpolating the gains
// from `from` (exclusive) to `to` (reached on the last frame).
func RampStereo(mono, out []float32, from, to Gains) {
	n := len(mono)
	if n == 0 {
		return
	}
	if from == to {
		for i, s := range mono {
			out[2*i] = s * to.Left
			out[2*i+1] = s * to.Right
		}
		return
	}

	dl := (to.Left - from.Left) / float32(n)
	dr := (to.Right - from.Right) / float32(n)
	for i, s := range mono {
		k := float32(i + 1)
		out[2*i] = s * (from.Left + dl*k)
		out[2*i+1] = s * (from.Right + dr*k)
	}
}
