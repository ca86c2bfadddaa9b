// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"

	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/internal/pcm"
)

// frameReader is the part of flac.Stream the source needs, split out for tests.
type frameReader interface {
	ParseNext() (*frame.Frame, error)
	Close() error
}

type source struct {
	stream     frameReader
	sampleRate int
	channels   int
	bitDepth   int
	frames     int64

	cur  *frame.Frame
	pos  int // next sample index inside cur
	ints []int
	done bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return s.stream.Close() }

// Length comes from STREAMINFO; zero there means the encoder did not know it.
func (s *source) Length() int64 {
	if s.frames <= 0 {
		return -1
	}
	return s.frames
}

func (s *source) ReadFrames(dst []float32) (int, error) {
	if len(dst)%s.channels != 0 {
		return 0, audio.ErrInvalidDstSize
	}
	want := len(dst) / s.channels
	if want == 0 {
		return 0, nil
	}
	if cap(s.ints) < len(dst) {
		s.ints = make([]int, len(dst))
	}
	ints := s.ints[:len(dst)]

	written := 0
	for written < want {
		if s.cur == nil || s.pos >= int(s.cur.BlockSize) {
			if s.done {
				break
			}
			f, err := s.stream.ParseNext()
			if errors.Is(err, io.EOF) {
				s.done = true
				break
			}
			if err != nil {
				pcm.SignedToFloats(dst[:written*s.channels], ints[:written*s.channels], s.bitDepth)
				return written, audio.DecodeError(err)
			}
			if len(f.Subframes) < s.channels {
				return written, fmt.Errorf("%w: frame has %d channels, stream %d",
					audio.ErrDecode, len(f.Subframes), s.channels)
			}
			s.cur, s.pos = f, 0
		}

		n := min(want-written, int(s.cur.BlockSize)-s.pos)
		for i := range n {
			for ch := range s.channels {
				ints[(written+i)*s.channels+ch] = int(s.cur.Subframes[ch].Samples[s.pos+i])
			}
		}
		written += n
		s.pos += n
	}

	pcm.SignedToFloats(dst[:written*s.channels], ints[:written*s.channels], s.bitDepth)
	if written == 0 {
		return 0, io.EOF
	}
	return written, nil
}

// Decoder reads native FLAC streams through mewkiz/flac.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: flac: %w", audio.ErrDecode, err)
	}

	info := stream.Info
	if info == nil || info.NChannels == 0 || info.SampleRate == 0 {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: flac stream info", audio.ErrDecode)
	}

	return &source{
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
		frames:     int64(info.NSamples),
	}, nil
}
