// SPDX-License-Identifier: EPL-2.0

package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ik5/audspace/formats/wav"
	"github.com/ik5/audspace/utils"
)

// OfflineOptions configure an Offline bridge.
type OfflineOptions struct {
	SampleRate int
	Frames     int64
	// BlockFrames is the size of each Render call; it defaults to 512.
	BlockFrames int
	// BitDepth of the WAV file: 16, 24 or 32. Defaults to 16.
	BitDepth int
}

const defaultOfflineBlock = 512

// Offline renders a fixed number of frames into a stereo WAV file.
type Offline struct {
	w    io.WriteSeeker
	opts OfflineOptions
	log  zerolog.Logger

	mu      sync.Mutex
	started bool
	written int64
}

func NewOffline(w io.WriteSeeker, opts OfflineOptions, log zerolog.Logger) (*Offline, error) {
	if opts.SampleRate <= 0 || opts.Frames < 0 || opts.BlockFrames < 0 {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidConfig, opts)
	}
	if opts.BlockFrames == 0 {
		opts.BlockFrames = defaultOfflineBlock
	}
	if opts.BitDepth == 0 {
		opts.BitDepth = 16
	}
	return &Offline{w: w, opts: opts, log: log.With().Str("component", "offline").Logger()}, nil
}

// Start renders until Frames are written or ctx is cancelled; either way
// the file is finalized and playable. Cancellation returns ctx.Err().
func (o *Offline) Start(ctx context.Context, r Renderer) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.started = true
	o.mu.Unlock()

	enc, err := wav.NewEncoder(o.w, o.opts.SampleRate, channels, o.opts.BitDepth)
	if err != nil {
		return fmt.Errorf("offline: %w", err)
	}

	buf := make([]float32, channels*o.opts.BlockFrames)
	var runErr error
	for remaining := o.opts.Frames; remaining > 0; {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		n := int(min(remaining, int64(o.opts.BlockFrames)))
		block := buf[:channels*n]
		r.Render(block)
		if err := enc.WriteFrames(block); err != nil {
			runErr = fmt.Errorf("offline write: %w", err)
			break
		}
		remaining -= int64(n)
	}

	if err := enc.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("offline finalize: %w", err)
	}

	o.mu.Lock()
	o.written = enc.Frames()
	o.mu.Unlock()
	o.log.Info().Int64("frames", enc.Frames()).Int("rate", o.opts.SampleRate).Msg("render finished")
	return runErr
}

// Written reports the frames stored by the last Start.
func (o *Offline) Written() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.written
}

// Close is a no-op; the caller owns the writer.
func (o *Offline) Close() error { return nil }

// Pipe renders a fixed number of 16-bit frames into memory and writes them
// as one WAV file to a plain io.Writer, such as stdout. The whole render is
// held until Start returns, so it suits short scenes.
type Pipe struct {
	w    io.Writer
	opts OfflineOptions
	log  zerolog.Logger

	mu      sync.Mutex
	started bool
	written int64
}

func NewPipe(w io.Writer, opts OfflineOptions, log zerolog.Logger) (*Pipe, error) {
	if opts.SampleRate <= 0 || opts.Frames < 0 || opts.BlockFrames < 0 {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidConfig, opts)
	}
	if opts.BitDepth != 0 && opts.BitDepth != 16 {
		return nil, fmt.Errorf("%w: pipe output is 16-bit, got %d", ErrInvalidConfig, opts.BitDepth)
	}
	if opts.BlockFrames == 0 {
		opts.BlockFrames = defaultOfflineBlock
	}
	opts.BitDepth = 16
	return &Pipe{w: w, opts: opts, log: log.With().Str("component", "pipe").Logger()}, nil
}

// Start renders until Frames are done or ctx is cancelled, then writes
// what was rendered. Cancellation returns ctx.Err() after the write.
func (p *Pipe) Start(ctx context.Context, r Renderer) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	p.mu.Unlock()

	samples := make([]int16, 0, channels*p.opts.Frames)
	buf := make([]float32, channels*p.opts.BlockFrames)
	var runErr error
	for remaining := p.opts.Frames; remaining > 0; {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		n := int(min(remaining, int64(p.opts.BlockFrames)))
		block := buf[:channels*n]
		r.Render(block)
		for _, s := range block {
			samples = append(samples, utils.Float32ToInt16(s))
		}
		remaining -= int64(n)
	}

	if err := wav.WriteWAV16(p.w, p.opts.SampleRate, channels, samples); err != nil {
		return errors.Join(runErr, fmt.Errorf("pipe write: %w", err))
	}

	frames := int64(len(samples) / channels)
	p.mu.Lock()
	p.written = frames
	p.mu.Unlock()
	p.log.Info().Int64("frames", frames).Int("rate", p.opts.SampleRate).Msg("render finished")
	return runErr
}

// Written reports the frames stored by the last Start.
func (p *Pipe) Written() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

// Close is a no-op; the caller owns the writer.
func (p *Pipe) Close() error { return nil }
