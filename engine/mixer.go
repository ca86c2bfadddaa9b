// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"math"

	"github.com/ik5/audspace/effects"
	"github.com/ik5/audspace/spatial"
)

type bus struct {
	id      BusID
	name    string
	gain    float32
	effects effects.Chain
	buf     []float32
}

func newBus(id BusID, name string, blockSize int, chain []effects.Effect) *bus {
	return &bus{
		id:      id,
		name:    name,
		gain:    1,
		effects: append(effects.Chain(nil), chain...),
		buf:     make([]float32, 2*blockSize),
	}
}

// command is a control intent applied by the render tick.
type command func(m *mixer)

// mixer is the render-side state. It is only touched while the context's
// render lock is held.
type mixer struct {
	rate  int
	block int

	voices []*voice
	buses  []*bus

	listener   spatial.Listener
	distance   spatial.DistanceModel
	renderer   RendererKind
	masterGain float32

	mono []float32
	raw  []float32
	vout []float32

	// sum carries the bus mix in double precision up to the master stage.
	sum []float64

	events  chan<- Event
	reap    chan<- *voice
	pending []*voice
	metrics *Metrics
}

func (m *mixer) find(id SourceID) *voice {
	for _, v := range m.voices {
		if v.shared.id == id {
			return v
		}
	}
	return nil
}

func (m *mixer) findBus(id BusID) *bus {
	for _, b := range m.buses {
		if b.id == id {
			return b
		}
	}
	return nil
}

// emit never blocks; a lagging consumer loses events.
func (m *mixer) emit(e Event) {
	select {
	case m.events <- e:
	default:
		m.metrics.DroppedEvents.Inc()
	}
}

func (m *mixer) underrun(v *voice) {
	m.metrics.Underruns.Inc()
	m.emit(Event{Kind: EventUnderrun, Source: v.shared.id})
}

func (m *mixer) failed(v *voice, err error) {
	m.metrics.DecodeErrors.Inc()
	m.emit(Event{Kind: EventError, Source: v.shared.id, Err: err})
}

// mixBlock renders n <= block frames into out.
func (m *mixer) mixBlock(out []float32, n int) int {
	for _, b := range m.buses {
		clear(b.buf[:2*n])
	}

	active := 0
	vout := m.vout[:2*n]
	for _, v := range m.voices {
		if v.status != Playing {
			continue
		}
		active++
		v.render(m, vout, n)
		dst := v.bus.buf[:2*n]
		for i, s := range vout {
			dst[i] += s
		}
	}

	if len(m.sum) < 2*n {
		m.sum = make([]float64, 2*m.block)
	}
	sum := m.sum[:2*n]
	clear(sum)
	for _, b := range m.buses {
		buf := b.buf[:2*n]
		b.effects.Process(buf)
		g := float64(b.gain)
		if g == 0 {
			continue
		}
		for i, s := range buf {
			sum[i] += float64(s) * g
		}
	}

	master := float64(m.masterGain)
	for i, s := range sum {
		if master == 0 && !math.IsNaN(s) {
			out[i] = 0
			continue
		}
		s *= master
		if math.IsNaN(s) {
			panic(fmt.Sprintf("audspace: non-finite sample %v at %d", s, i))
		}
		// saturates ±Inf as well
		out[i] = float32(min(max(s, -1), 1))
	}
	return active
}

// sweep drops removed voices, keeping insertion order, and hands them to
// the reaper.
func (m *mixer) sweep() {
	kept := m.voices[:0]
	for _, v := range m.voices {
		if !v.removed {
			kept = append(kept, v)
			continue
		}
		v.shared.status.Store(int32(Stopped))
		m.emit(Event{Kind: EventRemoved, Source: v.shared.id})
		m.pending = append(m.pending, v)
	}
	clear(m.voices[len(kept):])
	m.voices = kept

	for len(m.pending) > 0 {
		select {
		case m.reap <- m.pending[0]:
			m.pending[0] = nil
			m.pending = m.pending[1:]
		default:
			return
		}
	}
}

func (m *mixer) publish() {
	for _, v := range m.voices {
		v.shared.status.Store(int32(v.status))
		v.shared.position.Store(v.position())
		v.shared.bus.Store(uint32(v.bus.id))
	}
}
