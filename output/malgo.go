// SPDX-License-Identifier: EPL-2.0

package output

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// Malgo plays through miniaudio. The renderer runs inside the device's
// data callback.
type Malgo struct {
	opts DeviceOptions
	log  zerolog.Logger
	ctx  *malgo.AllocatedContext

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewMalgo initializes a miniaudio context with the default backends.
func NewMalgo(opts DeviceOptions, log zerolog.Logger) (*Malgo, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	log = log.With().Str("component", "malgo").Logger()
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug().Msg(message)
	})
	if err != nil {
		return nil, fmt.Errorf("malgo context: %w", err)
	}

	return &Malgo{opts: opts, log: log, ctx: ctx}, nil
}

func (m *Malgo) Start(ctx context.Context, r Renderer) error {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case m.started:
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
	}()

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	if m.opts.Format == Int16 {
		cfg.Playback.Format = malgo.FormatS16
	}
	cfg.Playback.Channels = channels
	cfg.SampleRate = uint32(m.opts.SampleRate)
	cfg.PerformanceProfile = malgo.LowLatency
	cfg.PeriodSizeInMilliseconds = uint32(max(1, m.opts.Latency.Milliseconds()))

	pump := newPump(r, m.opts.Format, m.opts.periodFrames())
	device, err := malgo.InitDevice(m.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			pump.fill(output)
		},
	})
	if err != nil {
		return fmt.Errorf("malgo device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("malgo start: %w", err)
	}
	m.log.Info().
		Int("rate", m.opts.SampleRate).
		Str("format", m.opts.Format.String()).
		Dur("latency", m.opts.Latency).
		Msg("playback started")

	<-ctx.Done()

	if err := device.Stop(); err != nil {
		return fmt.Errorf("malgo stop: %w", err)
	}
	m.log.Info().Msg("playback stopped")
	return nil
}

func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	err := m.ctx.Uninit()
	m.ctx.Free()
	if err != nil {
		return fmt.Errorf("malgo uninit: %w", err)
	}
	return nil
}
