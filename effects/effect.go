// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"fmt"
	"math"

	"github.com/ik5/audspace/utils"
)

// Effect transforms a block of interleaved stereo frames in place.
type Effect interface {
	Process(buf []float32)
	// Reset drops internal state such as filter memory or reverb tails.
	Reset()
}

// Chain applies its effects in order.
type Chain []Effect

func (c Chain) Process(buf []float32) {
	for _, e := range c {
		e.Process(buf)
	}
}

func (c Chain) Reset() {
	for _, e := range c {
		e.Reset()
	}
}

// Attenuate scales both channels by a constant gain.
type Attenuate struct {
	gain float32
}

// NewAttenuate returns an Attenuate effect. The gain must be finite and
// not negative.
func NewAttenuate(gain float32) (*Attenuate, error) {
	if !(gain >= 0) || math.IsInf(float64(gain), 1) {
		return nil, fmt.Errorf("%w: attenuate gain %v", ErrInvalidParam, gain)
	}
	return &Attenuate{gain: gain}, nil
}

// NewAttenuateDB takes the gain in decibels; 0 dB leaves the signal alone.
func NewAttenuateDB(db float64) (*Attenuate, error) {
	if math.IsNaN(db) || math.IsInf(db, 0) {
		return nil, fmt.Errorf("%w: attenuate %v dB", ErrInvalidParam, db)
	}
	return NewAttenuate(utils.DBToGain(db))
}

func (a *Attenuate) Gain() float32 { return a.gain }

func (a *Attenuate) Process(buf []float32) {
	for i := range buf {
		buf[i] *= a.gain
	}
}

func (a *Attenuate) Reset() {}
