// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/audspace/buffer"
	"github.com/ik5/audspace/effects"
	"github.com/ik5/audspace/hrtf"
	"github.com/ik5/audspace/spatial"
)

// Context owns every source, bus and the listener, and renders the mix.
//
// Control methods may be called from any goroutine. They validate their
// arguments, then queue a command that the next Render applies, so a call
// returning nil means "accepted", not "already audible". Render is meant to
// be driven by one output bridge.
type Context struct {
	cfg      Config
	log      zerolog.Logger
	metrics  *Metrics
	sphere   *hrtf.Sphere
	streamer *buffer.Streamer

	cmds chan command

	mu      sync.RWMutex
	closed  bool
	sources map[SourceID]*shared
	order   []SourceID
	buses   map[BusID]struct{}
	nextBus BusID

	renderMu sync.Mutex
	done     bool
	mix      mixer

	events chan Event
	out    chan Event
	reap   chan *voice

	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
	closeErr  error
}

// New builds a context and starts its background workers: the event pump,
// the reaper that releases finished sources and, unless one is supplied,
// the stream refill worker.
func New(cfg Config) (*Context, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "engine").Logger()
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics, _ = NewMetrics(nil)
	}

	var sphere *hrtf.Sphere
	if cfg.HRTF != nil {
		s, err := cfg.HRTF.Resample(cfg.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("prepare hrtf: %w", err)
		}
		sphere = s
	}

	listener := spatial.DefaultListener()
	if cfg.Listener != nil {
		listener = cfg.Listener.Orthonormalize()
	}

	master := float32(1)
	if cfg.MasterGain != nil {
		master = *cfg.MasterGain
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	c := &Context{
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
		sphere:   sphere,
		streamer: cfg.Streamer,
		cmds:     make(chan command, cfg.QueueSize),
		sources:  make(map[SourceID]*shared),
		buses:    map[BusID]struct{}{PrimaryBus: {}},
		nextBus:  PrimaryBus + 1,
		events:   make(chan Event, cfg.EventBuffer),
		out:      make(chan Event, cfg.EventBuffer),
		reap:     make(chan *voice, cfg.MaxSources),
		cancel:   cancel,
		group:    group,
	}

	c.mix = mixer{
		rate:       cfg.SampleRate,
		block:      cfg.BlockSize,
		voices:     make([]*voice, 0, cfg.MaxSources),
		buses:      []*bus{newBus(PrimaryBus, "primary", cfg.BlockSize, nil)},
		listener:   listener,
		distance:   cfg.DistanceModel,
		renderer:   cfg.Renderer,
		masterGain: master,
		mono:       make([]float32, cfg.BlockSize),
		raw:        make([]float32, 2*cfg.BlockSize),
		vout:       make([]float32, 2*cfg.BlockSize),
		sum:        make([]float64, 2*cfg.BlockSize),
		events:     c.events,
		reap:       c.reap,
		metrics:    metrics,
	}

	if c.streamer == nil {
		c.streamer = buffer.NewStreamer(log, 0)
		group.Go(func() error { return c.streamer.Run(gctx) })
	}
	group.Go(c.pump)
	group.Go(c.reaper)

	log.Debug().
		Int("rate", cfg.SampleRate).
		Int("block", cfg.BlockSize).
		Str("renderer", cfg.Renderer.String()).
		Str("distance", cfg.DistanceModel.String()).
		Bool("hrtf", sphere != nil).
		Msg("engine started")

	return c, nil
}

func (c *Context) SampleRate() int { return c.cfg.SampleRate }

// Events delivers render-side notifications. The channel is closed by Close.
func (c *Context) Events() <-chan Event { return c.out }

// enqueue must be called with c.mu held.
func (c *Context) enqueue(cmd command) error {
	if c.closed {
		return ErrClosed
	}
	select {
	case c.cmds <- cmd:
		return nil
	default:
		c.metrics.RejectedCmds.Inc()
		return ErrQueueFull
	}
}

// withSource queues fn for a known source.
func (c *Context) withSource(id SourceID, fn func(m *mixer, v *voice)) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.sources[id]; !ok && !c.closed {
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	return c.enqueue(func(m *mixer) {
		if v := m.find(id); v != nil {
			fn(m, v)
		}
	})
}

// AddSource registers a source playing m, which must be a *buffer.Static or
// a *buffer.Stream. A stream is claimed and owned by the context from here
// on; a static clip stays shareable. The source starts Stopped unless
// Autoplay is given.
func (c *Context) AddSource(m Material, opts ...SourceOption) (SourceID, error) {
	o := defaultSourceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return uuid.Nil, err
	}
	if m == nil || m.SampleRate() <= 0 || m.Channels() <= 0 {
		return uuid.Nil, fmt.Errorf("%w: material", ErrInvalidParam)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return uuid.Nil, ErrClosed
	}
	if len(c.sources) >= c.cfg.MaxSources {
		return uuid.Nil, ErrTooManySources
	}
	if _, ok := c.buses[o.bus]; !ok {
		return uuid.Nil, fmt.Errorf("%w: %d", ErrUnknownBus, o.bus)
	}

	v := &voice{
		shared:   &shared{id: uuid.New(), length: -1},
		channels: m.Channels(),
		rate:     m.SampleRate(),
		gain:     o.gain,
		panning:  o.panning,
		spatial:  o.spatial,
		renderer: o.renderer,
		playOnce: o.playOnce,
	}
	v.setPitch(o.pitch, c.cfg.SampleRate)
	v.shared.bus.Store(uint32(o.bus))
	if c.sphere != nil {
		v.binaural = hrtf.NewRenderer(c.sphere, c.cfg.BlockSize)
	}

	switch mat := m.(type) {
	case *buffer.Static:
		v.static = mat
		v.shared.length = int64(mat.Frames())
		mat.Acquire()
	case *buffer.Stream:
		if err := mat.Claim(); err != nil {
			return uuid.Nil, err
		}
		// the first fill must already know whether to wrap
		mat.SetLooping(o.looping)
		if err := c.streamer.Add(mat); err != nil {
			mat.Release()
			return uuid.Nil, fmt.Errorf("register stream: %w", err)
		}
		v.stream = mat
		v.hist = make([]float32, v.channels)
		v.shared.length = mat.Length()
	default:
		return uuid.Nil, fmt.Errorf("%w: material %T", ErrInvalidParam, m)
	}
	v.setLooping(o.looping)
	if o.autoplay {
		v.status = Playing
	}
	v.shared.status.Store(int32(v.status))

	busID := o.bus
	err := c.enqueue(func(m *mixer) {
		v.bus = m.findBus(busID)
		if v.bus == nil {
			v.bus = m.buses[0]
		}
		m.voices = append(m.voices, v)
	})
	if err != nil {
		c.unclaim(v)
		return uuid.Nil, err
	}

	c.sources[v.shared.id] = v.shared
	c.order = append(c.order, v.shared.id)
	return v.shared.id, nil
}

// RemoveSource stops and drops a source at the next tick.
func (c *Context) RemoveSource(id SourceID) error {
	return c.withSource(id, func(_ *mixer, v *voice) {
		v.status = Stopped
		v.removed = true
	})
}

// Play starts or resumes a source. Playing sources are left alone.
func (c *Context) Play(id SourceID) error {
	return c.withSource(id, func(_ *mixer, v *voice) { v.play() })
}

// Pause keeps the position. Pausing a source that is not playing does nothing.
func (c *Context) Pause(id SourceID) error {
	return c.withSource(id, func(_ *mixer, v *voice) { v.pause() })
}

// Stop rewinds to the start. Stopping a stopped source does nothing.
func (c *Context) Stop(id SourceID) error {
	return c.withSource(id, func(_ *mixer, v *voice) { v.stop() })
}

// Seek moves the playback position to frame. It fails synchronously when
// the material length is known and frame lies outside it.
func (c *Context) Seek(id SourceID, frame int64) error {
	c.mu.RLock()
	s, ok := c.sources[id]
	c.mu.RUnlock()
	if ok && (frame < 0 || (s.length >= 0 && frame >= s.length)) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRangeSeek, frame, s.length)
	}
	return c.withSource(id, func(_ *mixer, v *voice) {
		v.rewind(frame)
		v.underrun = false
	})
}

func (c *Context) SetGain(id SourceID, gain float32) error {
	if err := validGain(gain); err != nil {
		return err
	}
	return c.withSource(id, func(_ *mixer, v *voice) { v.gain = gain })
}

func (c *Context) SetPitch(id SourceID, pitch float64) error {
	if err := validPitch(pitch); err != nil {
		return err
	}
	return c.withSource(id, func(m *mixer, v *voice) { v.setPitch(pitch, m.rate) })
}

func (c *Context) SetLooping(id SourceID, loop bool) error {
	return c.withSource(id, func(_ *mixer, v *voice) { v.setLooping(loop) })
}

// SetPanning sets the balance of a non-positional source.
func (c *Context) SetPanning(id SourceID, pan float32) error {
	if err := validPan(pan); err != nil {
		return err
	}
	return c.withSource(id, func(_ *mixer, v *voice) { v.panning = pan })
}

// SetSpatial makes a source positional, or plain stereo again when p is nil.
func (c *Context) SetSpatial(id SourceID, p *SpatialParams) error {
	if p != nil {
		if err := p.validate(); err != nil {
			return err
		}
		cp := *p
		p = &cp
	}
	return c.withSource(id, func(_ *mixer, v *voice) {
		if (v.spatial == nil) != (p == nil) {
			v.resetDSP()
		}
		v.spatial = p
	})
}

// SetBus routes a source into another bus.
func (c *Context) SetBus(id SourceID, busID BusID) error {
	c.mu.RLock()
	_, ok := c.buses[busID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBus, busID)
	}
	return c.withSource(id, func(m *mixer, v *voice) {
		if b := m.findBus(busID); b != nil {
			v.bus = b
		}
	})
}

// SetRenderer overrides how one positional source is spatialized.
func (c *Context) SetRenderer(id SourceID, kind RendererKind) error {
	if err := validRenderer(kind); err != nil {
		return err
	}
	return c.withSource(id, func(_ *mixer, v *voice) { v.renderer = kind })
}

// State returns the source state as of the last tick.
func (c *Context) State(id SourceID) (SourceState, bool) {
	c.mu.RLock()
	s, ok := c.sources[id]
	c.mu.RUnlock()
	if !ok {
		return SourceState{}, false
	}
	return s.state(), true
}

// Sources lists the registered sources in the order they were added.
func (c *Context) Sources() []SourceID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// AddBus creates a bus whose effects run in the given order.
func (c *Context) AddBus(name string, chain ...effects.Effect) (BusID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextBus
	b := newBus(id, name, c.cfg.BlockSize, chain)
	if err := c.enqueue(func(m *mixer) { m.buses = append(m.buses, b) }); err != nil {
		return 0, err
	}
	c.nextBus++
	c.buses[id] = struct{}{}
	return id, nil
}

func (c *Context) withBus(id BusID, fn func(m *mixer, b *bus)) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.buses[id]; !ok && !c.closed {
		return fmt.Errorf("%w: %d", ErrUnknownBus, id)
	}
	return c.enqueue(func(m *mixer) {
		if b := m.findBus(id); b != nil {
			fn(m, b)
		}
	})
}

// SetBusEffects replaces the effect chain of a bus.
func (c *Context) SetBusEffects(id BusID, chain ...effects.Effect) error {
	fx := append(effects.Chain(nil), chain...)
	return c.withBus(id, func(_ *mixer, b *bus) { b.effects = fx })
}

func (c *Context) SetBusGain(id BusID, gain float32) error {
	if err := validGain(gain); err != nil {
		return err
	}
	return c.withBus(id, func(_ *mixer, b *bus) { b.gain = gain })
}

// RemoveBus drops a bus; its sources move to the primary bus.
func (c *Context) RemoveBus(id BusID) error {
	if id == PrimaryBus {
		return ErrPrimaryBus
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.buses[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBus, id)
	}
	err := c.enqueue(func(m *mixer) {
		for i, b := range m.buses {
			if b.id == id {
				m.buses = append(m.buses[:i], m.buses[i+1:]...)
				break
			}
		}
		for _, v := range m.voices {
			if v.bus.id == id {
				v.bus = m.buses[0]
			}
		}
	})
	if err != nil {
		return err
	}
	delete(c.buses, id)
	return nil
}

func (c *Context) control(cmd command) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enqueue(cmd)
}

// SetListener replaces the listener; the basis is orthonormalized.
func (c *Context) SetListener(l spatial.Listener) error {
	if !l.Position.IsFinite() || !l.Forward.IsFinite() || !l.Up.IsFinite() || math.IsNaN(l.EarOffset) {
		return fmt.Errorf("%w: listener %+v", ErrInvalidParam, l)
	}
	l = l.Orthonormalize()
	return c.control(func(m *mixer) { m.listener = l })
}

func (c *Context) SetMasterGain(gain float32) error {
	if err := validGain(gain); err != nil {
		return err
	}
	return c.control(func(m *mixer) { m.masterGain = gain })
}

func (c *Context) SetDistanceModel(model spatial.DistanceModel) error {
	if model < spatial.DistanceInverse || model > spatial.DistanceNone {
		return fmt.Errorf("%w: distance model %v", ErrInvalidParam, model)
	}
	return c.control(func(m *mixer) { m.distance = model })
}

// SetDefaultRenderer picks the renderer for sources that do not override it.
func (c *Context) SetDefaultRenderer(kind RendererKind) error {
	if err := validRenderer(kind); err != nil {
		return err
	}
	if kind == RendererDefault {
		kind = RendererPanning
	}
	return c.control(func(m *mixer) { m.renderer = kind })
}

// Render mixes len(out)/2 interleaved stereo frames into out. After Close
// it writes silence.
func (c *Context) Render(out []float32) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	if c.done {
		clear(out)
		return
	}

	start := time.Now()
	c.drain()

	m := &c.mix
	frames := len(out) / 2
	active := 0
	for off := 0; off < frames; off += m.block {
		n := min(m.block, frames-off)
		active = max(active, m.mixBlock(out[2*off:2*(off+n)], n))
	}
	if len(out)%2 != 0 {
		out[len(out)-1] = 0
	}

	m.sweep()
	m.publish()

	c.metrics.ActiveSources.Set(float64(active))
	c.metrics.RenderedFrames.Add(float64(frames))
	c.metrics.TickDuration.Observe(time.Since(start).Seconds())
}

// RenderFrames is Render into a fresh buffer of n frames.
func (c *Context) RenderFrames(n int) []float32 {
	out := make([]float32, 2*max(n, 0))
	c.Render(out)
	return out
}

// drain applies the commands queued before this tick started.
func (c *Context) drain() {
	for range len(c.cmds) {
		select {
		case cmd := <-c.cmds:
			cmd(&c.mix)
		default:
			return
		}
	}
}

func (c *Context) pump() error {
	for e := range c.events {
		ev := c.log.Debug()
		switch e.Kind {
		case EventUnderrun:
			ev = c.log.Warn()
		case EventError:
			ev = c.log.Error().Err(e.Err)
		}
		ev.Str("source", e.Source.String()).Str("event", e.Kind.String()).Msg("source event")

		select {
		case c.out <- e:
		default:
			c.metrics.DroppedEvents.Inc()
		}
	}
	close(c.out)
	return nil
}

func (c *Context) reaper() error {
	for v := range c.reap {
		c.release(v)
		c.mu.Lock()
		delete(c.sources, v.shared.id)
		c.order = slices.DeleteFunc(c.order, func(id SourceID) bool { return id == v.shared.id })
		c.mu.Unlock()
	}
	return nil
}

// release gives back what a source holds. It runs off the render path.
func (c *Context) release(v *voice) {
	if v.static != nil {
		v.static.Release()
	}
	if v.stream != nil {
		v.stream.Release()
		if err := v.stream.Close(); err != nil {
			c.log.Warn().Err(err).Str("source", v.shared.id.String()).Msg("stream close failed")
		}
	}
}

// unclaim undoes AddSource for a source that never reached the mixer; the
// caller keeps ownership of its material.
func (c *Context) unclaim(v *voice) {
	if v.static != nil {
		v.static.Release()
	}
	if v.stream != nil {
		c.streamer.Remove(v.stream)
		v.stream.Release()
	}
}

// Close stops the workers and releases every source. Render keeps working
// afterwards but only produces silence.
func (c *Context) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.renderMu.Lock()
		c.done = true
		c.drain()
		left := append(c.mix.voices, c.mix.pending...)
		c.mix.voices, c.mix.pending = nil, nil
		c.renderMu.Unlock()

		close(c.events)
		close(c.reap)
		c.cancel()
		err := c.group.Wait()

		for _, v := range left {
			c.release(v)
		}
		c.mu.Lock()
		clear(c.sources)
		c.order = nil
		c.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			c.closeErr = err
		}
		c.log.Debug().Int("released", len(left)).Msg("engine closed")
	})
	return c.closeErr
}
