// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"math"
)

type sourceOptions struct {
	gain     float32
	pitch    float64
	looping  bool
	panning  float32
	spatial  *SpatialParams
	bus      BusID
	renderer RendererKind
	playOnce bool
	autoplay bool
}

func defaultSourceOptions() sourceOptions {
	return sourceOptions{gain: 1, pitch: 1}
}

// SourceOption configures AddSource.
type SourceOption func(*sourceOptions)

func WithGain(g float32) SourceOption { return func(o *sourceOptions) { o.gain = g } }

// WithPitch scales playback speed; 2 plays an octave up.
func WithPitch(p float64) SourceOption { return func(o *sourceOptions) { o.pitch = p } }

func WithLooping(loop bool) SourceOption { return func(o *sourceOptions) { o.looping = loop } }

// WithPanning sets the stereo balance of a non-positional source in [-1, 1].
func WithPanning(pan float32) SourceOption { return func(o *sourceOptions) { o.panning = pan } }

// WithSpatial makes the source positional.
func WithSpatial(p SpatialParams) SourceOption {
	return func(o *sourceOptions) { o.spatial = &p }
}

func WithBus(id BusID) SourceOption { return func(o *sourceOptions) { o.bus = id } }

func WithRenderer(k RendererKind) SourceOption { return func(o *sourceOptions) { o.renderer = k } }

// PlayOnce removes the source automatically once it stops.
func PlayOnce() SourceOption { return func(o *sourceOptions) { o.playOnce = true } }

// Autoplay starts the source in the same tick it is added.
func Autoplay() SourceOption { return func(o *sourceOptions) { o.autoplay = true } }

func (o sourceOptions) validate() error {
	if err := validGain(o.gain); err != nil {
		return err
	}
	if err := validPitch(o.pitch); err != nil {
		return err
	}
	if err := validPan(o.panning); err != nil {
		return err
	}
	if err := validRenderer(o.renderer); err != nil {
		return err
	}
	if o.spatial != nil {
		return o.spatial.validate()
	}
	return nil
}

// MaxGain bounds every gain the control API accepts.
const MaxGain = 1e6

func validGain(g float32) error {
	if !(g >= 0 && g <= MaxGain) {
		return fmt.Errorf("%w: gain %v", ErrInvalidParam, g)
	}
	return nil
}

func validPitch(p float64) error {
	if !(p > 0) || math.IsInf(p, 0) {
		return fmt.Errorf("%w: pitch %v", ErrInvalidParam, p)
	}
	return nil
}

func validPan(p float32) error {
	if !(p >= -1 && p <= 1) {
		return fmt.Errorf("%w: panning %v", ErrInvalidParam, p)
	}
	return nil
}

func validRenderer(k RendererKind) error {
	if k < RendererDefault || k > RendererHRTF {
		return fmt.Errorf("%w: renderer %v", ErrInvalidParam, k)
	}
	return nil
}
