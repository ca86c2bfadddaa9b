// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

func isEOF(err error) bool { return errors.Is(err, io.EOF) }

// ReadAll drains src and returns every interleaved sample it produced.
// The returned error is nil on a clean end of stream.
//
// chunkFrames controls the read granularity; values below 1 select 4096.
func ReadAll(src Source, chunkFrames int) ([]float32, error) {
	if chunkFrames < 1 {
		chunkFrames = 4096
	}
	channels := src.Channels()
	if channels < 1 {
		return nil, ErrInvalidChannelSize
	}

	// Pre-size from the known length when the adapter reports one
	var out []float32
	if n := Length(src); n > 0 {
		out = make([]float32, 0, int(n)*channels)
	}
	buf := make([]float32, chunkFrames*channels)

	for {
		n, err := src.ReadFrames(buf)
		if n > 0 {
			out = append(out, buf[:n*channels]...)
		}

		if isEOF(err) {
			return out, nil
		}

		if err != nil {
			return out, fmt.Errorf("%w", err)
		}
	}
}

// SliceSource serves interleaved samples from memory.
type SliceSource struct {
	samples    []float32
	sampleRate int
	channels   int
	pos        int
}

// NewSliceSource wraps interleaved samples; the slice is not copied.
func NewSliceSource(sampleRate, channels int, samples []float32) *SliceSource {
	return &SliceSource{samples: samples, sampleRate: sampleRate, channels: channels}
}

func (s *SliceSource) SampleRate() int { return s.sampleRate }
func (s *SliceSource) Channels() int   { return s.channels }
func (s *SliceSource) Close() error    { return nil }
func (s *SliceSource) Length() int64   { return int64(len(s.samples) / s.channels) }

func (s *SliceSource) ReadFrames(dst []float32) (int, error) {
	if len(dst)%s.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(dst, s.samples[s.pos:])
	n -= n % s.channels
	s.pos += n
	return n / s.channels, nil
}
