// SPDX-License-Identifier: EPL-2.0

package buffer

import (
	"fmt"

	"github.com/ik5/audspace/audio"
)

const decodeChunkFrames = 4096

type decodeOptions struct {
	sampleRate int
	mono       bool
}

// DecodeOption adjusts how Decode converts a source.
type DecodeOption func(*decodeOptions)

// WithSampleRate resamples the material to rate while decoding.
func WithSampleRate(rate int) DecodeOption {
	return func(o *decodeOptions) { o.sampleRate = rate }
}

// WithMono averages all channels into one.
func WithMono() DecodeOption {
	return func(o *decodeOptions) { o.mono = true }
}

// Decode reads src to the end into a Static clip and closes it.
func Decode(src audio.Source, opts ...DecodeOption) (*Static, error) {
	var o decodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	defer src.Close()

	var s audio.Source = src
	if o.mono && s.Channels() > 1 {
		s = audio.NewMonoMixer(s)
	}
	if o.sampleRate < 0 {
		return nil, fmt.Errorf("decode: %w", audio.ErrInvalidSampleRate)
	}
	if o.sampleRate > 0 && o.sampleRate != s.SampleRate() {
		s = audio.NewResampler(s, o.sampleRate)
	}

	samples, err := audio.ReadAll(s, decodeChunkFrames)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return NewStatic(s.SampleRate(), s.Channels(), samples)
}
