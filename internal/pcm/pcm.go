// SPDX-License-Identifier: EPL-2.0

// Package pcm holds the integer/float conversions and reader plumbing shared
// by the format adapters.
package pcm

import (
	"bytes"
	"fmt"
	"io"
)

// Scale returns the divisor that maps a signed integer sample of the given
// bit depth into [-1, 1).
func Scale(bitDepth int) float32 {
	if bitDepth < 1 || bitDepth > 32 {
		bitDepth = 16
	}
	return float32(uint64(1) << (bitDepth - 1))
}

// IntsToFloats converts integer samples to float32 following the RIFF
// convention: 8-bit material is unsigned and re-centred first.
func IntsToFloats(dst []float32, src []int, bitDepth int) {
	if bitDepth == 8 {
		scale := 1 / Scale(bitDepth)
		for i, v := range src {
			dst[i] = float32(v-128) * scale
		}
		return
	}
	SignedToFloats(dst, src, bitDepth)
}

// SignedToFloats converts two's complement samples of any depth, as stored
// by AIFF and FLAC.
func SignedToFloats(dst []float32, src []int, bitDepth int) {
	scale := 1 / Scale(bitDepth)
	for i, v := range src {
		dst[i] = float32(v) * scale
	}
}

// FloatToInt converts a float sample in [-1, 1] to a signed integer of the
// given bit depth, clamping out of range input.
func FloatToInt(x float32, bitDepth int) int {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	maxVal := float64(Scale(bitDepth)) - 1
	return int(float64(x) * maxVal)
}

// ReadSeeker returns r itself when it can seek, otherwise the fully buffered
// content. go-audio decoders need random access to walk RIFF/IFF chunks.
func ReadSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffering input: %w", err)
	}
	return bytes.NewReader(data), nil
}
