// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"fmt"
	"math"
)

// FilterKind selects the response of a Biquad.
type FilterKind int

const (
	LowPass FilterKind = iota
	HighPass
	BandPass
	AllPass
	LowShelf
	HighShelf
)

func (k FilterKind) String() string {
	switch k {
	case LowPass:
		return "lowpass"
	case HighPass:
		return "highpass"
	case BandPass:
		return "bandpass"
	case AllPass:
		return "allpass"
	case LowShelf:
		return "lowshelf"
	case HighShelf:
		return "highshelf"
	default:
		return fmt.Sprintf("FilterKind(%d)", int(k))
	}
}

// DefaultQ gives a Butterworth response for the pass filters and the
// standard slope for the shelves.
const DefaultQ = math.Sqrt2 / 2

type biquadState struct {
	x1, x2, y1, y2 float64
}

// Biquad is a second order IIR filter with the RBJ cookbook responses.
// Both channels share the coefficients and keep separate memory.
type Biquad struct {
	kind   FilterKind
	freq   float64
	q      float64
	gainDB float64

	b0, b1, b2, a1, a2 float64
	state              [2]biquadState
}

// NewBiquad designs a filter of the given kind. gainDB is only used by the
// shelving kinds.
func NewBiquad(kind FilterKind, sampleRate int, freq, q, gainDB float64) (*Biquad, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if !(freq > 0 && freq < float64(sampleRate)/2) {
		return nil, fmt.Errorf("%w: %v Hz at %d Hz", ErrInvalidFrequency, freq, sampleRate)
	}
	if !(q > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQ, q)
	}
	if math.IsNaN(gainDB) || math.IsInf(gainDB, 0) {
		return nil, fmt.Errorf("%w: gain %v dB", ErrInvalidParam, gainDB)
	}

	w0 := 2 * math.Pi * freq / float64(sampleRate)
	cos, sin := math.Cos(w0), math.Sin(w0)
	alpha := sin / (2 * q)
	amp := math.Pow(10, gainDB/40)
	shelf := 2 * math.Sqrt(amp) * alpha

	var b0, b1, b2, a0, a1, a2 float64
	switch kind {
	case LowPass:
		b0, b1, b2 = (1-cos)/2, 1-cos, (1-cos)/2
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case HighPass:
		b0, b1, b2 = (1+cos)/2, -(1 + cos), (1+cos)/2
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case BandPass:
		b0, b1, b2 = alpha, 0, -alpha
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case AllPass:
		b0, b1, b2 = 1-alpha, -2*cos, 1+alpha
		a0, a1, a2 = 1+alpha, -2*cos, 1-alpha
	case LowShelf:
		b0 = amp * ((amp + 1) - (amp-1)*cos + shelf)
		b1 = 2 * amp * ((amp - 1) - (amp+1)*cos)
		b2 = amp * ((amp + 1) - (amp-1)*cos - shelf)
		a0 = (amp + 1) + (amp-1)*cos + shelf
		a1 = -2 * ((amp - 1) + (amp+1)*cos)
		a2 = (amp + 1) + (amp-1)*cos - shelf
	case HighShelf:
		b0 = amp * ((amp + 1) + (amp-1)*cos + shelf)
		b1 = -2 * amp * ((amp - 1) + (amp+1)*cos)
		b2 = amp * ((amp + 1) + (amp-1)*cos - shelf)
		a0 = (amp + 1) - (amp-1)*cos + shelf
		a1 = 2 * ((amp - 1) - (amp+1)*cos)
		a2 = (amp + 1) - (amp-1)*cos - shelf
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidParam, kind)
	}

	return &Biquad{
		kind:   kind,
		freq:   freq,
		q:      q,
		gainDB: gainDB,
		b0:     b0 / a0,
		b1:     b1 / a0,
		b2:     b2 / a0,
		a1:     a1 / a0,
		a2:     a2 / a0,
	}, nil
}

func NewLowPass(sampleRate int, cutoff, q float64) (*Biquad, error) {
	return NewBiquad(LowPass, sampleRate, cutoff, q, 0)
}

func NewHighPass(sampleRate int, cutoff, q float64) (*Biquad, error) {
	return NewBiquad(HighPass, sampleRate, cutoff, q, 0)
}

// NewBandPass has unity gain at the centre frequency.
func NewBandPass(sampleRate int, centre, q float64) (*Biquad, error) {
	return NewBiquad(BandPass, sampleRate, centre, q, 0)
}

func NewAllPass(sampleRate int, centre, q float64) (*Biquad, error) {
	return NewBiquad(AllPass, sampleRate, centre, q, 0)
}

func NewLowShelf(sampleRate int, corner, q, gainDB float64) (*Biquad, error) {
	return NewBiquad(LowShelf, sampleRate, corner, q, gainDB)
}

func NewHighShelf(sampleRate int, corner, q, gainDB float64) (*Biquad, error) {
	return NewBiquad(HighShelf, sampleRate, corner, q, gainDB)
}

func (b *Biquad) Kind() FilterKind { return b.kind }

// Params returns the design frequency, Q and shelf gain.
func (b *Biquad) Params() (freq, q, gainDB float64) { return b.freq, b.q, b.gainDB }

func (b *Biquad) Process(buf []float32) {
	for ch := range b.state {
		st := &b.state[ch]
		for i := ch; i < len(buf); i += 2 {
			x := float64(buf[i])
			y := b.b0*x + b.b1*st.x1 + b.b2*st.x2 - b.a1*st.y1 - b.a2*st.y2
			st.x2, st.x1 = st.x1, x
			st.y2, st.y1 = st.y1, y
			buf[i] = float32(y)
		}
	}
}

func (b *Biquad) Reset() {
	b.state = [2]biquadState{}
}
