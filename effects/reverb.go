// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"fmt"
	"math"
)

// Freeverb tunings, in samples at 44.1 kHz.
var (
	combTuning    = [...]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allPassTuning = [...]int{556, 441, 341, 225}
)

const (
	tuningRate      = 44100
	stereoSpread    = 23
	inputGain       = 0.015
	allPassFeedback = 0.5

	DefaultDecayTime = 2.0 // seconds
	DefaultDamping   = 0.5
	DefaultWet       = 0.3
	DefaultDry       = 1.0
)

type comb struct {
	buf      []float32
	idx      int
	feedback float32
	store    float32
}

func (c *comb) process(in, damp float32) float32 {
	out := c.buf[c.idx]
	c.store = out*(1-damp) + c.store*damp
	c.buf[c.idx] = in + c.store*c.feedback
	if c.idx++; c.idx == len(c.buf) {
		c.idx = 0
	}
	return out
}

type allPass struct {
	buf []float32
	idx int
}

func (a *allPass) process(in float32) float32 {
	delayed := a.buf[a.idx]
	a.buf[a.idx] = in + delayed*allPassFeedback
	if a.idx++; a.idx == len(a.buf) {
		a.idx = 0
	}
	return delayed - in
}

type reverbChannel struct {
	combs     [len(combTuning)]comb
	allPasses [len(allPassTuning)]allPass
}

type reverbOptions struct {
	decay   float64
	damping float64
	wet     float64
	dry     float64
}

// ReverbOption configures NewReverb.
type ReverbOption func(*reverbOptions)

// WithDecayTime sets the time in seconds for the tail to fall by 60 dB.
func WithDecayTime(seconds float64) ReverbOption {
	return func(o *reverbOptions) { o.decay = seconds }
}

// WithDamping sets the high frequency absorption in [0, 1].
func WithDamping(d float64) ReverbOption {
	return func(o *reverbOptions) { o.damping = d }
}

func WithWet(w float64) ReverbOption {
	return func(o *reverbOptions) { o.wet = w }
}

func WithDry(d float64) ReverbOption {
	return func(o *reverbOptions) { o.dry = d }
}

// Reverb is a Schroeder/Moorer network: eight damped feedback combs in
// parallel followed by four all-pass stages, one network per channel with
// slightly longer delays on the right.
type Reverb struct {
	ch      [2]reverbChannel
	decay   float64
	damping float32
	wet     float32
	dry     float32
}

func NewReverb(sampleRate int, opts ...ReverbOption) (*Reverb, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}

	o := reverbOptions{decay: DefaultDecayTime, damping: DefaultDamping, wet: DefaultWet, dry: DefaultDry}
	for _, opt := range opts {
		opt(&o)
	}
	switch {
	case !(o.decay > 0) || math.IsInf(o.decay, 0):
		return nil, fmt.Errorf("%w: decay time %v", ErrInvalidParam, o.decay)
	case !(o.damping >= 0 && o.damping <= 1):
		return nil, fmt.Errorf("%w: damping %v", ErrInvalidParam, o.damping)
	case !(o.wet >= 0) || !(o.dry >= 0) || math.IsInf(o.wet, 0) || math.IsInf(o.dry, 0):
		return nil, fmt.Errorf("%w: wet %v dry %v", ErrInvalidParam, o.wet, o.dry)
	}

	r := &Reverb{
		decay:   o.decay,
		damping: float32(o.damping),
		wet:     float32(o.wet),
		dry:     float32(o.dry),
	}

	scale := float64(sampleRate) / tuningRate
	delay := func(n int) int { return max(1, int(math.Round(float64(n)*scale))) }
	for c := range r.ch {
		spread := c * stereoSpread
		for i, n := range combTuning {
			d := delay(n + spread)
			r.ch[c].combs[i] = comb{
				buf: make([]float32, d),
				// reach -60 dB after decay seconds of recirculation
				feedback: float32(math.Pow(10, -3*float64(d)/(o.decay*float64(sampleRate)))),
			}
		}
		for i, n := range allPassTuning {
			r.ch[c].allPasses[i] = allPass{buf: make([]float32, delay(n+spread))}
		}
	}
	return r, nil
}

func (r *Reverb) DecayTime() float64 { return r.decay }

func (r *Reverb) Process(buf []float32) {
	for i := 0; i+1 < len(buf); i += 2 {
		inL, inR := buf[i], buf[i+1]
		in := (inL + inR) * inputGain

		for c := range r.ch {
			ch := &r.ch[c]
			var acc float32
			for k := range ch.combs {
				acc += ch.combs[k].process(in, r.damping)
			}
			for k := range ch.allPasses {
				acc = ch.allPasses[k].process(acc)
			}
			buf[i+c] = buf[i+c]*r.dry + acc*r.wet
		}
	}
}

func (r *Reverb) Reset() {
	for c := range r.ch {
		for k := range r.ch[c].combs {
			clear(r.ch[c].combs[k].buf)
			r.ch[c].combs[k].idx = 0
			r.ch[c].combs[k].store = 0
		}
		for k := range r.ch[c].allPasses {
			clear(r.ch[c].allPasses[k].buf)
			r.ch[c].allPasses[k].idx = 0
		}
	}
}
