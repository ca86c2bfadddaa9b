// SPDX-License-Identifier: EPL-2.0

package output

import (
	"context"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
)

// Oto plays through ebitengine/oto. The player pulls from the renderer on
// oto's own goroutine. Only one Oto may exist per process.
type Oto struct {
	opts DeviceOptions
	log  zerolog.Logger
	ctx  *oto.Context

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewOto opens the audio device and waits until it is ready.
func NewOto(opts DeviceOptions, log zerolog.Logger) (*Oto, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	format := oto.FormatFloat32LE
	if opts.Format == Int16 {
		format = oto.FormatSignedInt16LE
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   opts.SampleRate,
		ChannelCount: channels,
		Format:       format,
		BufferSize:   opts.Latency,
	})
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	<-ready

	return &Oto{
		opts: opts,
		log:  log.With().Str("component", "oto").Logger(),
		ctx:  ctx,
	}, nil
}

func (o *Oto) Start(ctx context.Context, r Renderer) error {
	o.mu.Lock()
	switch {
	case o.closed:
		o.mu.Unlock()
		return ErrClosed
	case o.started:
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.started = true
	o.mu.Unlock()

	player := o.ctx.NewPlayer(newPump(r, o.opts.Format, o.opts.periodFrames()))
	player.SetBufferSize(o.opts.periodFrames() * channels * o.opts.Format.size())
	player.Play()
	o.log.Info().
		Int("rate", o.opts.SampleRate).
		Str("format", o.opts.Format.String()).
		Dur("latency", o.opts.Latency).
		Msg("playback started")

	<-ctx.Done()

	err := player.Close()
	o.mu.Lock()
	o.started = false
	o.mu.Unlock()
	o.log.Info().Msg("playback stopped")
	if err != nil {
		return fmt.Errorf("oto player: %w", err)
	}
	return nil
}

// Close suspends the device. The oto context itself lives until the
// process exits.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	if err := o.ctx.Suspend(); err != nil {
		return fmt.Errorf("oto suspend: %w", err)
	}
	return nil
}
