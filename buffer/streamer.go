// SPDX-License-Identifier: EPL-2.0

package buffer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRefillInterval bounds how long a stream waits for a refill when no
// consumer wake-up arrives.
const DefaultRefillInterval = 10 * time.Millisecond

// Streamer is the background decoder worker. One goroutine services every
// registered stream, topping each ring up to its look-ahead.
type Streamer struct {
	log      zerolog.Logger
	interval time.Duration

	mtx     sync.Mutex
	streams []*Stream
	closed  bool

	wake    chan struct{}
	scratch []*Stream
}

// NewStreamer creates an idle worker; call Run to start it.
func NewStreamer(log zerolog.Logger, interval time.Duration) *Streamer {
	if interval <= 0 {
		interval = DefaultRefillInterval
	}
	return &Streamer{
		log:      log.With().Str("component", "streamer").Logger(),
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Add registers a stream and fills it once synchronously, so playback can
// start on the next tick.
func (s *Streamer) Add(st *Stream) error {
	s.mtx.Lock()
	if s.closed {
		s.mtx.Unlock()
		return ErrStreamerClosed
	}
	s.streams = append(s.streams, st)
	s.mtx.Unlock()

	st.streamer.Store(s)
	if _, err := st.Fill(); err != nil {
		s.log.Warn().Err(err).Msg("initial stream fill failed")
	}
	return nil
}

// Remove unregisters a stream. It is safe to call more than once.
func (s *Streamer) Remove(st *Stream) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for i, v := range s.streams {
		if v == st {
			s.streams = append(s.streams[:i], s.streams[i+1:]...)
			break
		}
	}
	st.streamer.CompareAndSwap(s, nil)
}

// Len reports the number of registered streams.
func (s *Streamer) Len() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.streams)
}

// Wake schedules a refill pass without blocking.
func (s *Streamer) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run services streams until ctx is cancelled.
func (s *Streamer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Debug().Dur("interval", s.interval).Msg("streamer started")
	defer s.log.Debug().Msg("streamer stopped")

	for {
		select {
		case <-ctx.Done():
			s.mtx.Lock()
			s.closed = true
			s.mtx.Unlock()
			return nil
		case <-s.wake:
		case <-ticker.C:
		}
		s.pump()
	}
}

func (s *Streamer) pump() {
	s.mtx.Lock()
	s.scratch = append(s.scratch[:0], s.streams...)
	s.mtx.Unlock()

	for _, st := range s.scratch {
		n, err := st.Fill()
		if err != nil {
			s.log.Warn().Err(err).Msg("stream refill failed")
			continue
		}
		if n > 0 {
			s.log.Trace().Int("frames", n).Int("available", st.Available()).Msg("stream refilled")
		}
	}
	clear(s.scratch)
}
