// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/audspace/internal/pcm"
)

// Encoder streams interleaved float32 frames into a PCM WAV file.
// The header sizes are patched on Close, so the target must be seekable.
type Encoder struct {
	enc      *gowav.Encoder
	buf      *goaudio.IntBuffer
	channels int
	bitDepth int
	frames   int64
}

// NewEncoder prepares a PCM WAV writer with the given layout.
// bitDepth must be 16, 24 or 32.
func NewEncoder(w io.WriteSeeker, sampleRate, channels, bitDepth int) (*Encoder, error) {
	if channels < 1 {
		return nil, ErrInvalidChannels
	}
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	return &Encoder{
		enc: gowav.NewEncoder(w, sampleRate, bitDepth, channels, formatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		channels: channels,
		bitDepth: bitDepth,
	}, nil
}

// WriteFrames converts and appends interleaved samples; values outside
// [-1, 1] are clamped.
func (e *Encoder) WriteFrames(samples []float32) error {
	if len(samples)%e.channels != 0 {
		return fmt.Errorf("%d samples for %d channels: %w", len(samples), e.channels, ErrInvalidChannels)
	}

	if cap(e.buf.Data) < len(samples) {
		e.buf.Data = make([]int, len(samples))
	}
	e.buf.Data = e.buf.Data[:len(samples)]
	for i, s := range samples {
		e.buf.Data[i] = pcm.FloatToInt(s, e.bitDepth)
	}

	if err := e.enc.Write(e.buf); err != nil {
		return fmt.Errorf("%w", err)
	}
	e.frames += int64(len(samples) / e.channels)
	return nil
}

// Frames returns how many frames were written so far.
func (e *Encoder) Frames() int64 { return e.frames }

// Close finalizes the header. It does not close the underlying writer.
func (e *Encoder) Close() error {
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}
