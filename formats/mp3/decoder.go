// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/audspace/audio"
)

// go-mp3 always yields 16-bit little-endian stereo.
const (
	channels   = 2
	frameBytes = channels * 2
)

// mp3Reader is the part of gomp3.Decoder the source needs, split out for tests.
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
	Length() int64
}

type source struct {
	dec     mp3Reader
	buf     []byte
	pending int // bytes of a split frame carried to the next read
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }

// Length is known only when the input could seek.
func (s *source) Length() int64 {
	n := s.dec.Length()
	if n < 0 {
		return -1
	}
	return n / frameBytes
}

func (s *source) ReadFrames(dst []float32) (int, error) {
	if len(dst)%channels != 0 {
		return 0, audio.ErrInvalidDstSize
	}
	if len(dst) == 0 {
		return 0, nil
	}

	need := len(dst) / channels * frameBytes
	if cap(s.buf) < need {
		nb := make([]byte, need)
		copy(nb, s.buf[:s.pending])
		s.buf = nb
	}
	s.buf = s.buf[:need]

	n, err := io.ReadAtLeast(s.dec, s.buf[s.pending:], min(frameBytes, need-s.pending))
	n += s.pending
	frames := n / frameBytes

	for i := range frames * channels {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(s.buf[2*i:]))) / 32768
	}

	// Keep the tail of an incomplete frame for the next call.
	s.pending = copy(s.buf, s.buf[frames*frameBytes:n])

	switch {
	case err == nil:
		return frames, nil
	case err == io.EOF || err == io.ErrUnexpectedEOF:
		if frames == 0 {
			return 0, io.EOF
		}
		return frames, nil
	default:
		return frames, audio.DecodeError(err)
	}
}

// Decoder reads MPEG-1/2 Layer III through go-mp3.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %w", audio.ErrDecode, err)
	}

	return &source{dec: dec}, nil
}
