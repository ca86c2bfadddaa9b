// SPDX-License-Identifier: EPL-2.0

package hrtf

// Renderer convolves one mono source with the HRIR pair for its current
// direction. It keeps the input tail between blocks, so consecutive calls
// form one continuous convolution. When the direction changes, the block is
// rendered with both the old and the new pair and crossfaded linearly, which
// removes the steps a moving source would otherwise produce.
//
// A Renderer belongs to one source and is not safe for concurrent use.
type Renderer struct {
	sphere *Sphere
	irLen  int

	curL, curR   []float32
	nextL, nextR []float32

	// previous irLen-1 inputs followed by the current block
	hist []float32

	az, el float64
	gain   float32
	primed bool
}

// NewRenderer sizes the state for blocks of up to maxBlock frames. Larger
// blocks work but grow the history buffer.
func NewRenderer(s *Sphere, maxBlock int) *Renderer {
	n := s.IRLength()
	return &Renderer{
		sphere: s,
		irLen:  n,
		curL:   make([]float32, n),
		curR:   make([]float32, n),
		nextL:  make([]float32, n),
		nextR:  make([]float32, n),
		hist:   make([]float32, n-1+max(maxBlock, 1)),
	}
}

// Reset clears the convolution history and the held direction.
func (r *Renderer) Reset() {
	clear(r.hist)
	r.primed = false
}

// Process renders mono to interleaved stereo in out for a source at azimuth
// and elevation in degrees. gain is reached at the end of the block,
// ramping from the previous call's gain.
func (r *Renderer) Process(mono, out []float32, azimuth, elevation float64, gain float32) {
	n := len(mono)
	if n == 0 {
		return
	}
	tail := r.irLen - 1
	if len(r.hist) < tail+n {
		grown := make([]float32, tail+n)
		copy(grown, r.hist[:tail])
		r.hist = grown
	}
	ext := r.hist[:tail+n]
	copy(ext[tail:], mono)

	fade := false
	switch {
	case !r.primed:
		r.sphere.Sample(azimuth, elevation, r.curL, r.curR)
		r.az, r.el, r.gain = azimuth, elevation, gain
		r.primed = true
	case azimuth != r.az || elevation != r.el:
		r.sphere.Sample(azimuth, elevation, r.nextL, r.nextR)
		r.az, r.el = azimuth, elevation
		fade = true
	}

	g0, dg := r.gain, (gain-r.gain)/float32(n)
	inv := 1 / float32(n)

	for i := range n {
		x := ext[i : i+tail+1]
		var l, rr float32
		for k := range r.irLen {
			s := x[tail-k]
			l += r.curL[k] * s
			rr += r.curR[k] * s
		}
		if fade {
			var nl, nr float32
			for k := range r.irLen {
				s := x[tail-k]
				nl += r.nextL[k] * s
				nr += r.nextR[k] * s
			}
			w := float32(i+1) * inv
			l += (nl - l) * w
			rr += (nr - rr) * w
		}
		g := g0 + dg*float32(i+1)
		out[2*i] = l * g
		out[2*i+1] = rr * g
	}

	if fade {
		r.curL, r.nextL = r.nextL, r.curL
		r.curR, r.nextR = r.nextR, r.curR
	}
	r.gain = gain
	copy(r.hist[:tail], ext[n:])
}
