// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/ik5/audspace/audio"
)

// oggReader is the part of oggvorbis.Reader the source needs, split out for tests.
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
	Length() int64
}

// maxEmptyReads bounds the retries when the decoder returns no values
// without an error, which happens across Ogg page boundaries.
const maxEmptyReads = 64

type source struct {
	dec        oggReader
	sampleRate int
	channels   int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }

// Length is known only when the input could seek; oggvorbis reports zero otherwise.
func (s *source) Length() int64 {
	if n := s.dec.Length(); n > 0 {
		return n
	}
	return -1
}

func (s *source) ReadFrames(dst []float32) (int, error) {
	if len(dst)%s.channels != 0 {
		return 0, audio.ErrInvalidDstSize
	}
	if len(dst) == 0 {
		return 0, nil
	}

	// oggvorbis counts values, not frames, and only returns whole frames.
	for range maxEmptyReads {
		n, err := s.dec.Read(dst)
		frames := n / s.channels
		switch {
		case err == io.EOF:
			if frames == 0 {
				return 0, io.EOF
			}
			return frames, nil
		case err != nil:
			return frames, audio.DecodeError(err)
		case frames > 0:
			return frames, nil
		}
	}

	return 0, fmt.Errorf("%w: vorbis decoder made no progress", audio.ErrDecode)
}

// Decoder reads Ogg Vorbis through jfreymuth/oggvorbis.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: ogg vorbis: %w", audio.ErrDecode, err)
	}
	if dec.Channels() < 1 || dec.SampleRate() < 1 {
		return nil, fmt.Errorf("%w: ogg vorbis header", audio.ErrDecode)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}, nil
}
