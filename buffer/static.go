// SPDX-License-Identifier: EPL-2.0

package buffer

import (
	"fmt"
	"sync/atomic"
)

// Static is a fully decoded, immutable clip. Any number of sources may play
// the same *Static at once; each keeps its own cursor and the samples are
// never copied.
type Static struct {
	sampleRate int
	channels   int
	frames     int
	samples    []float32

	refs atomic.Int32
}

// NewStatic wraps interleaved samples. The slice is retained, not copied,
// and must not be modified afterwards.
func NewStatic(sampleRate, channels int, samples []float32) (*Static, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrInvalidLayout, sampleRate, channels)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples for %d channels", ErrInvalidLayout, len(samples), channels)
	}
	if len(samples) == 0 {
		return nil, ErrEmpty
	}

	return &Static{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     len(samples) / channels,
		samples:    samples,
	}, nil
}

func (b *Static) SampleRate() int { return b.sampleRate }
func (b *Static) Channels() int   { return b.channels }

// Frames is the clip length in frames.
func (b *Static) Frames() int { return b.frames }

// Samples exposes the interleaved data. Callers must treat it as read-only.
func (b *Static) Samples() []float32 { return b.samples }

// At returns one sample; frame must be in [0, Frames()).
func (b *Static) At(frame, ch int) float32 {
	return b.samples[frame*b.channels+ch]
}

// Read copies count frames starting at start into dst. It never wraps:
// looping callers split the window themselves.
func (b *Static) Read(start, count int, dst []float32) error {
	if start < 0 || count < 0 || start+count > b.frames {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrOutOfRange, start, start+count, b.frames)
	}
	if len(dst) < count*b.channels {
		return fmt.Errorf("%w: dst holds %d samples, need %d", ErrOutOfRange, len(dst), count*b.channels)
	}
	copy(dst, b.samples[start*b.channels:(start+count)*b.channels])
	return nil
}

// Acquire and Release track how many sources currently hold the clip.
// The count is informational; the garbage collector owns the memory.
func (b *Static) Acquire() { b.refs.Add(1) }
func (b *Static) Release() { b.refs.Add(-1) }

// Refs reports the number of sources attached to the clip.
func (b *Static) Refs() int { return int(b.refs.Load()) }
