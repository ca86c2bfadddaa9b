// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ik5/audspace/buffer"
	"github.com/ik5/audspace/hrtf"
	"github.com/ik5/audspace/spatial"
)

const (
	DefaultSampleRate  = 48000
	DefaultBlockSize   = 512
	DefaultQueueSize   = 1024
	DefaultMaxSources  = 256
	DefaultEventBuffer = 256
)

// Config describes a Context. Zero fields take the defaults above.
type Config struct {
	SampleRate int
	// BlockSize caps the frames mixed per internal pass; Render splits
	// larger requests.
	BlockSize   int
	QueueSize   int
	MaxSources  int
	EventBuffer int

	// MasterGain is applied to the final mix; nil means 1.
	MasterGain *float32
	// DistanceModel defaults to the inverse law.
	DistanceModel spatial.DistanceModel
	Renderer      RendererKind
	Listener      *spatial.Listener

	// HRTF is resampled to SampleRate when needed. Without it, HRTF
	// sources fall back to panning.
	HRTF *hrtf.Sphere

	// Streamer refills stream sources. When nil the context runs its own.
	Streamer *buffer.Streamer

	Logger  *zerolog.Logger
	Metrics *Metrics
}

func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.BlockSize == 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.MaxSources == 0 {
		c.MaxSources = DefaultMaxSources
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	if c.Renderer == RendererDefault {
		c.Renderer = RendererPanning
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.SampleRate < 0, c.BlockSize < 0, c.QueueSize < 0, c.MaxSources < 0, c.EventBuffer < 0:
		return fmt.Errorf("%w: negative size in %+v", ErrInvalidConfig, c)
	case c.MasterGain != nil && validGain(*c.MasterGain) != nil:
		return fmt.Errorf("%w: master gain %v", ErrInvalidConfig, *c.MasterGain)
	case c.DistanceModel < spatial.DistanceInverse || c.DistanceModel > spatial.DistanceNone:
		return fmt.Errorf("%w: distance model %v", ErrInvalidConfig, c.DistanceModel)
	case c.Renderer < RendererDefault || c.Renderer > RendererHRTF:
		return fmt.Errorf("%w: renderer %v", ErrInvalidConfig, c.Renderer)
	case c.Listener != nil && (!c.Listener.Position.IsFinite() || !c.Listener.Forward.IsFinite() || !c.Listener.Up.IsFinite()):
		return fmt.Errorf("%w: listener %+v", ErrInvalidConfig, *c.Listener)
	}
	return nil
}
