// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"math"

	"github.com/ik5/audspace/utils"
)

// Resampler streams from src to a target sample rate using cubic interpolation.
// Works on interleaved frames and preserves the channel count.
// A one-pole low-pass runs ahead of the interpolator when downsampling.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	// frames[0] = t-1, frames[1] = t0, frames[2] = t+1, frames[3] = t+2
	frames   [4][]float32
	hasFrame [4]bool
	primed   bool

	// fractional position between frames[1] and frames[2]
	pos float64

	srcBuf []float32
	eof    bool

	filterState []float32
	useFilter   bool
	filterAlpha float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	ratio := float64(src.SampleRate()) / float64(dstRate)

	useFilter := ratio > 1.0
	var filterAlpha float32
	if useFilter {
		// cutoff at the destination Nyquist frequency
		filterAlpha = float32(1 - math.Exp(-math.Pi/ratio))
	}

	r := &Resampler{
		src:         src,
		dstRate:     dstRate,
		ratio:       ratio,
		channels:    channels,
		srcBuf:      make([]float32, channels),
		useFilter:   useFilter,
		filterAlpha: filterAlpha,
		filterState: make([]float32, channels),
	}

	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }

// Length estimates the output length when the source length is known.
func (r *Resampler) Length() int64 {
	n := Length(r.src)
	if n < 0 {
		return -1
	}
	return int64(math.Ceil(float64(n) / r.ratio))
}

func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// readFrame pulls one source frame into dst and reports whether one was available.
func (r *Resampler) readFrame(dst []float32) (bool, error) {
	if r.eof {
		return false, nil
	}

	n, err := r.src.ReadFrames(r.srcBuf)
	if err != nil && !isEOF(err) {
		return false, DecodeError(err)
	}
	if isEOF(err) {
		r.eof = true
	}
	if n == 0 {
		if !r.eof {
			// a source that returns nothing without EOF is treated as finished
			r.eof = true
		}
		return false, nil
	}

	copy(dst, r.srcBuf)
	if r.useFilter {
		for c := range r.channels {
			dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = dst[c]
		}
	}
	return true, nil
}

func (r *Resampler) prime() error {
	r.primed = true

	// frames[0] mirrors frames[1] until real history exists
	for i := 1; i < 4; i++ {
		ok, err := r.readFrame(r.frames[i])
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if i == 1 && r.useFilter {
			copy(r.filterState, r.frames[1])
		}
		r.hasFrame[i] = true
	}
	if r.hasFrame[1] {
		copy(r.frames[0], r.frames[1])
		r.hasFrame[0] = true
	}
	return nil
}

// shift moves the window one frame forward.
func (r *Resampler) shift() error {
	copy(r.frames[0], r.frames[1])
	copy(r.frames[1], r.frames[2])
	copy(r.frames[2], r.frames[3])
	r.hasFrame[0] = r.hasFrame[1]
	r.hasFrame[1] = r.hasFrame[2]
	r.hasFrame[2] = r.hasFrame[3]

	ok, err := r.readFrame(r.frames[3])
	if err != nil {
		return err
	}
	r.hasFrame[3] = ok
	return nil
}

// ReadFrames produces frames at the destination rate.
func (r *Resampler) ReadFrames(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	written := 0
	framesNeeded := len(dst) / r.channels

	for written < framesNeeded {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			if err := r.shift(); err != nil {
				return written, err
			}
		}

		if !r.hasFrame[1] {
			return written, io.EOF
		}

		alpha := float32(r.pos)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range r.channels {
			y1 := r.frames[1][c]
			y0, y2, y3 := y1, y1, y1
			if r.hasFrame[0] {
				y0 = r.frames[0][c]
			}
			if r.hasFrame[2] {
				y2 = r.frames[2][c]
				y3 = y2
			}
			if r.hasFrame[3] {
				y3 = r.frames[3][c]
			}
			out[c] = utils.CubicInterpolate(y0, y1, y2, y3, alpha)
		}

		written++
		r.pos += r.ratio
	}

	return written, nil
}
