// SPDX-License-Identifier: EPL-2.0

package hrtf

import (
	"fmt"

	"github.com/ik5/audspace/audio"
)

// Resample converts every response in the arena to rate. Taps are scaled by
// the rate ratio so the filters keep their gain.
func (s *Sphere) Resample(rate int) (*Sphere, error) {
	if rate <= 0 {
		return nil, ErrInvalidRate
	}
	if rate == s.sampleRate {
		return s, nil
	}

	nodes := s.azCount * s.elCount
	scale := float32(s.sampleRate) / float32(rate)
	pair := make([]float32, 2*s.irLen)

	var out [][]float32
	irLen := 0
	for i := range nodes {
		node := s.data[i*2*s.irLen : (i+1)*2*s.irLen]
		for k := range s.irLen {
			pair[2*k] = node[k]
			pair[2*k+1] = node[s.irLen+k]
		}

		rs := audio.NewResampler(audio.NewSliceSource(s.sampleRate, 2, pair), rate)
		res, err := audio.ReadAll(rs, 256)
		if err != nil {
			return nil, fmt.Errorf("resample hrir: %w", err)
		}
		out = append(out, res)
		irLen = max(irLen, len(res)/2)
	}
	if irLen == 0 {
		return nil, ErrEmptyIR
	}

	r := *s
	r.sampleRate = rate
	r.irLen = irLen
	r.data = make([]float32, nodes*2*irLen)
	for i, res := range out {
		node := r.data[i*2*irLen : (i+1)*2*irLen]
		for k := range len(res) / 2 {
			node[k] = res[2*k] * scale
			node[irLen+k] = res[2*k+1] * scale
		}
	}
	return &r, nil
}
