// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"math"
	"sync/atomic"

	"github.com/ik5/audspace/buffer"
	"github.com/ik5/audspace/hrtf"
	"github.com/ik5/audspace/spatial"
	"github.com/ik5/audspace/utils"
)

// Material is what a source plays: a *buffer.Static or a *buffer.Stream.
type Material interface {
	SampleRate() int
	Channels() int
}

// shared is the part of a source the control side may read at any time.
type shared struct {
	id       SourceID
	length   int64
	status   atomic.Int32
	position atomic.Int64
	bus      atomic.Uint32
}

func (s *shared) state() SourceState {
	return SourceState{
		ID:       s.id,
		Status:   Status(s.status.Load()),
		Position: s.position.Load(),
		Length:   s.length,
		Bus:      BusID(s.bus.Load()),
	}
}

// voice is a source as seen by the render tick. Only the render side
// touches it once it has been added.
type voice struct {
	shared *shared

	static   *buffer.Static
	stream   *buffer.Stream
	channels int
	rate     int

	cursor float64   // static: material frame
	frac   float64   // stream: fractional offset past the ring tail
	hist   []float32 // stream: last consumed frame
	step   float64

	status   Status
	gain     float32
	pitch    float64
	looping  bool
	panning  float32
	spatial  *SpatialParams
	renderer RendererKind
	bus      *bus
	playOnce bool

	balance       spatial.Gains
	balancePrimed bool
	panner        spatial.Panner
	binaural      *hrtf.Renderer
	lastKind      RendererKind

	underrun bool
	removed  bool
}

func (v *voice) setPitch(p float64, engineRate int) {
	v.pitch = p
	v.step = p * float64(v.rate) / float64(engineRate)
}

func (v *voice) position() int64 {
	if v.stream != nil {
		return v.stream.Position()
	}
	return int64(v.cursor)
}

func (v *voice) resetDSP() {
	v.balancePrimed = false
	v.panner.Reset()
	if v.binaural != nil {
		v.binaural.Reset()
	}
	v.underrun = false
}

func (v *voice) play() {
	if v.status == Playing {
		return
	}
	if v.status == Stopped {
		v.resetDSP()
	}
	v.status = Playing
}

func (v *voice) pause() {
	if v.status == Playing {
		v.status = Paused
	}
}

func (v *voice) stop() {
	if v.status == Stopped {
		return
	}
	v.status = Stopped
	v.rewind(0)
}

func (v *voice) rewind(frame int64) {
	if v.stream != nil {
		v.stream.RequestSeek(frame)
		v.frac = 0
		clear(v.hist)
		return
	}
	v.cursor = float64(frame)
}

func (v *voice) setLooping(loop bool) {
	v.looping = loop
	if v.stream != nil {
		v.stream.SetLooping(loop)
	}
}

// render writes n stereo frames of this voice into out.
func (v *voice) render(m *mixer, out []float32, n int) {
	if v.spatial == nil {
		raw := m.raw[:2*n]
		v.fetch(m, raw, n, 2)
		v.pan2D(raw, out)
		return
	}

	mono := m.mono[:n]
	v.fetch(m, mono, n, 1)
	v.spatialize(m, mono, out)
}

// fetch fills dst with n frames of outCh channels: 1 downmixes the
// material, 2 takes its first two channels. A voice that ends inside the
// block leaves zeros behind.
func (v *voice) fetch(m *mixer, dst []float32, n, outCh int) {
	if v.stream != nil {
		v.fetchStream(m, dst, n, outCh)
		return
	}
	if v.step == 1 && v.cursor == math.Trunc(v.cursor) && outCh == v.channels {
		v.copyStatic(m, dst, n)
		return
	}
	v.fetchStatic(m, dst, n, outCh)
}

// copyStatic is the unity-rate path: whole frames are copied verbatim, so
// loops repeat bit for bit.
func (v *voice) copyStatic(m *mixer, dst []float32, n int) {
	frames := v.static.Frames()
	ch := v.channels
	for k := 0; k < n; {
		pos := int(v.cursor)
		if pos >= frames {
			if !v.looping {
				clear(dst[k*ch : n*ch])
				v.finish(m, nil)
				return
			}
			pos %= frames
		}
		count := min(n-k, frames-pos)
		// bounds are checked above
		_ = v.static.Read(pos, count, dst[k*ch:(k+count)*ch])
		k += count
		v.cursor = float64(pos + count)
	}
}

func (v *voice) staticAt(i, ch int) float32 {
	frames := v.static.Frames()
	if i < 0 || i >= frames {
		switch {
		case v.looping:
			i = ((i % frames) + frames) % frames
		case i < 0:
			i = 0
		default:
			return 0
		}
	}
	return v.static.At(i, ch)
}

func (v *voice) staticTap(i, oc, outCh int) float32 {
	if outCh == 1 && v.channels > 1 {
		var sum float32
		for ch := range v.channels {
			sum += v.staticAt(i, ch)
		}
		return sum / float32(v.channels)
	}
	return v.staticAt(i, min(oc, v.channels-1))
}

func (v *voice) fetchStatic(m *mixer, dst []float32, n, outCh int) {
	frames := float64(v.static.Frames())
	for k := range n {
		if v.cursor >= frames {
			if !v.looping {
				clear(dst[k*outCh : n*outCh])
				v.finish(m, nil)
				return
			}
			v.cursor = math.Mod(v.cursor, frames)
		}

		i := int(v.cursor)
		frac := float32(v.cursor - float64(i))
		for oc := range outCh {
			y1 := v.staticTap(i, oc, outCh)
			if frac == 0 {
				dst[k*outCh+oc] = y1
				continue
			}
			dst[k*outCh+oc] = utils.CubicInterpolate(
				v.staticTap(i-1, oc, outCh), y1,
				v.staticTap(i+1, oc, outCh), v.staticTap(i+2, oc, outCh), frac)
		}
		v.cursor += v.step
	}
}

// streamAt reads frame off past the ring tail; -1 is the last consumed
// frame and anything past avail is silence.
func (v *voice) streamAt(off, avail, ch int) float32 {
	switch {
	case off < 0:
		return v.hist[ch]
	case off >= avail:
		return 0
	}
	return v.stream.Frame(off, ch)
}

func (v *voice) streamTap(off, avail, oc, outCh int) float32 {
	if outCh == 1 && v.channels > 1 {
		var sum float32
		for ch := range v.channels {
			sum += v.streamAt(off, avail, ch)
		}
		return sum / float32(v.channels)
	}
	return v.streamAt(off, avail, min(oc, v.channels-1))
}

// fetchStream interpolates from the ring without waiting for the worker.
// Interpolation needs two frames of lookahead; when they are missing and
// more are still coming the rest of the block is silence.
func (v *voice) fetchStream(m *mixer, dst []float32, n, outCh int) {
	st := v.stream
	avail := st.Available()
	finished := st.Finished()

	off, k := 0, 0
	starved, ended := false, false
	for ; k < n; k++ {
		if off+2 >= avail && !finished {
			starved = true
			break
		}
		if off >= avail {
			ended = true
			break
		}

		frac := float32(v.frac)
		for oc := range outCh {
			y1 := v.streamTap(off, avail, oc, outCh)
			if frac == 0 {
				dst[k*outCh+oc] = y1
				continue
			}
			dst[k*outCh+oc] = utils.CubicInterpolate(
				v.streamTap(off-1, avail, oc, outCh), y1,
				v.streamTap(off+1, avail, oc, outCh), v.streamTap(off+2, avail, oc, outCh), frac)
		}

		v.frac += v.step
		whole := int(v.frac)
		off += whole
		v.frac -= float64(whole)
	}
	clear(dst[k*outCh : n*outCh])

	if used := min(off, avail); used > 0 {
		for ch := range v.channels {
			v.hist[ch] = st.Frame(used-1, ch)
		}
		st.Advance(used)
	}

	switch {
	case ended:
		v.finish(m, st.Err())
	case starved:
		if !v.underrun {
			v.underrun = true
			m.underrun(v)
		}
	default:
		v.underrun = false
	}
}

// finish handles a source running out of material.
func (v *voice) finish(m *mixer, err error) {
	v.status = Stopped
	if v.playOnce {
		v.removed = true
	} else {
		v.rewind(0)
	}
	if err != nil {
		m.failed(v, err)
		return
	}
	m.emit(Event{Kind: EventStopped, Source: v.shared.id})
}

func (v *voice) pan2D(in, out []float32) {
	to := spatial.Balance(v.panning)
	to.Left *= v.gain
	to.Right *= v.gain
	from := v.balance
	if !v.balancePrimed {
		from = to
		v.balancePrimed = true
	}
	v.balance = to

	n := len(in) / 2
	if from == to {
		for i := range n {
			out[2*i] = in[2*i] * to.Left
			out[2*i+1] = in[2*i+1] * to.Right
		}
		return
	}
	dl := (to.Left - from.Left) / float32(n)
	dr := (to.Right - from.Right) / float32(n)
	for i := range n {
		k := float32(i + 1)
		out[2*i] = in[2*i] * (from.Left + dl*k)
		out[2*i+1] = in[2*i+1] * (from.Right + dr*k)
	}
}

func (v *voice) spatialize(m *mixer, mono, out []float32) {
	kind := v.renderer
	if kind == RendererDefault {
		kind = m.renderer
	}
	if kind == RendererHRTF && v.binaural == nil {
		kind = RendererPanning
	}
	if kind != v.lastKind {
		v.panner.Reset()
		if v.binaural != nil {
			v.binaural.Reset()
		}
		v.lastKind = kind
	}

	p := v.spatial
	if kind == RendererHRTF {
		az, el, dist := m.listener.Direction(p.Position)
		g := v.gain * m.distance.Gain(dist, p.Rolloff)
		v.binaural.Process(mono, out, az*180/math.Pi, el*180/math.Pi, g)
		return
	}

	target := v.panner.Target(m.listener, p.Position, m.distance, p.Rolloff)
	target.Left *= v.gain
	target.Right *= v.gain
	v.panner.Process(mono, out, target)
}
