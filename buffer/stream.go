// SPDX-License-Identifier: EPL-2.0

package buffer

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ik5/audspace/audio"
)

// Opener creates the decoder behind a stream. It runs once when the stream
// is built and again on every loop restart and seek, always on the refill
// side.
type Opener func() (audio.Source, error)

const (
	// DefaultLookahead is the ring size in frames.
	DefaultLookahead = 16384
	// DefaultChunk is how many frames one decoder call may produce.
	DefaultChunk = 2048
)

// StreamOption configures NewStream.
type StreamOption func(*Stream)

// WithLookahead sets how many decoded frames the ring keeps ahead of playback.
func WithLookahead(frames int) StreamOption {
	return func(s *Stream) {
		if frames > 0 {
			s.capacity = uint64(frames)
		}
	}
}

// WithChunk caps the frames requested from the decoder per call.
func WithChunk(frames int) StreamOption {
	return func(s *Stream) {
		if frames > 0 {
			s.chunkFrames = frames
		}
	}
}

// Stream is a window of decoded frames refilled in the background.
//
// The ring has exactly one producer (Fill, normally driven by a Streamer)
// and one consumer (the source that claimed it). Consumer methods never
// block and never touch the decoder: Available, Frame, Advance, Ended, Err,
// RequestSeek, SetLooping and Position.
type Stream struct {
	open        Opener
	sampleRate  int
	channels    int
	length      int64
	chunkFrames int

	ring     []float32
	capacity uint64

	head atomic.Uint64 // frames produced
	tail atomic.Uint64 // frames consumed

	looping  atomic.Bool
	ended    atomic.Bool
	seekTo   atomic.Int64
	err      atomic.Pointer[error]
	claimed  atomic.Bool
	streamer atomic.Pointer[Streamer]

	// consumer side
	position int64

	// producer side
	mu        sync.Mutex
	src       audio.Source
	chunk     []float32
	emptyLoop bool
	closed    bool
}

// NewStream opens the decoder once to learn its layout and keeps it for the
// first pass. Nothing is decoded until Fill runs.
func NewStream(open Opener, opts ...StreamOption) (*Stream, error) {
	src, err := open()
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if src.SampleRate() <= 0 || src.Channels() <= 0 {
		_ = src.Close()
		return nil, fmt.Errorf("%w: %d Hz, %d channels", ErrInvalidLayout, src.SampleRate(), src.Channels())
	}

	s := &Stream{
		open:        open,
		sampleRate:  src.SampleRate(),
		channels:    src.Channels(),
		length:      audio.Length(src),
		chunkFrames: DefaultChunk,
		capacity:    DefaultLookahead,
		src:         src,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ring = make([]float32, int(s.capacity)*s.channels)
	s.chunk = make([]float32, s.chunkFrames*s.channels)
	s.seekTo.Store(-1)

	return s, nil
}

func (s *Stream) SampleRate() int { return s.sampleRate }
func (s *Stream) Channels() int   { return s.channels }

// Length is the material length in frames, or -1 when the decoder cannot tell.
func (s *Stream) Length() int64 { return s.length }

// Claim binds the stream to a single consumer.
func (s *Stream) Claim() error {
	if !s.claimed.CompareAndSwap(false, true) {
		return ErrStreamClaimed
	}
	return nil
}

// Release undoes Claim.
func (s *Stream) Release() { s.claimed.Store(false) }

// Available reports how many frames can be read right now. It is zero
// while a seek is pending.
func (s *Stream) Available() int {
	if s.seekTo.Load() >= 0 {
		return 0
	}
	return int(s.head.Load() - s.tail.Load())
}

// Frame returns sample ch of the i-th unread frame; i must be below Available.
func (s *Stream) Frame(i, ch int) float32 {
	idx := (s.tail.Load() + uint64(i)) % s.capacity
	return s.ring[int(idx)*s.channels+ch]
}

// Advance discards up to n frames and wakes the refill worker. It returns
// the number of frames actually discarded.
func (s *Stream) Advance(n int) int {
	n = min(n, s.Available())
	if n <= 0 {
		return 0
	}
	s.tail.Add(uint64(n))

	s.position += int64(n)
	if s.length > 0 && s.position >= s.length {
		s.position %= s.length
	}

	if st := s.streamer.Load(); st != nil {
		st.Wake()
	}
	return n
}

// Ended reports that every frame has been consumed and no more will come.
func (s *Stream) Ended() bool {
	return s.ended.Load() && s.Available() == 0 && s.seekTo.Load() < 0
}

// Finished reports that the producer will append no more frames. Frames
// already in the ring can still be read.
func (s *Stream) Finished() bool {
	return s.ended.Load() && s.seekTo.Load() < 0
}

// Err returns the decoder failure that ended the stream, if any.
func (s *Stream) Err() error {
	if p := s.err.Load(); p != nil {
		return *p
	}
	return nil
}

// SetLooping makes the worker restart the decoder at end of stream.
func (s *Stream) SetLooping(loop bool) { s.looping.Store(loop) }

// Looping reports the looping flag.
func (s *Stream) Looping() bool { return s.looping.Load() }

// RequestSeek asks the worker to restart decoding at frame. Until it does,
// Available reports zero.
func (s *Stream) RequestSeek(frame int64) {
	s.position = frame
	s.seekTo.Store(frame)
	if st := s.streamer.Load(); st != nil {
		st.Wake()
	}
}

// Position is the material frame the consumer will read next.
func (s *Stream) Position() int64 { return s.position }

// Fill decodes until the ring is full, the decoder ends or fails. It is the
// producer half of the ring and must not be called concurrently with itself.
// The returned error is the one that just ended the stream, reported once.
func (s *Stream) Fill() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, nil
	}

	if target := s.seekTo.Load(); target >= 0 {
		err := s.seek(target)
		if !s.seekTo.CompareAndSwap(target, -1) {
			// a newer request arrived; the next Fill handles it
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
	}

	filled := 0
	for !s.ended.Load() && s.seekTo.Load() < 0 {
		free := s.capacity - (s.head.Load() - s.tail.Load())
		if free == 0 {
			break
		}
		n, err := s.decode(min(int(free), s.chunkFrames))
		filled += n
		if err != nil {
			return filled, err
		}
		if n == 0 && s.src != nil {
			// decoder has nothing right now; leave the ring short
			break
		}
	}
	return filled, nil
}

// decode runs one decoder call and appends its frames to the ring.
func (s *Stream) decode(maxFrames int) (int, error) {
	if s.src == nil {
		if err := s.reopen(); err != nil {
			return 0, s.fail(err)
		}
	}

	buf := s.chunk[:maxFrames*s.channels]
	n, err := s.src.ReadFrames(buf)
	if n > 0 {
		s.write(buf[:n*s.channels])
		s.emptyLoop = false
	}

	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		if !s.looping.Load() || s.emptyLoop {
			// a loop pass that produced nothing would spin forever
			s.ended.Store(true)
			return n, nil
		}
		_ = s.src.Close()
		s.src = nil
		s.emptyLoop = true
		return n, nil
	default:
		return n, s.fail(err)
	}
}

func (s *Stream) reopen() error {
	src, err := s.open()
	if err != nil {
		return fmt.Errorf("reopen stream: %w", err)
	}
	if src.SampleRate() != s.sampleRate || src.Channels() != s.channels {
		_ = src.Close()
		return fmt.Errorf("%w: reopened as %d Hz, %d channels", ErrInvalidLayout, src.SampleRate(), src.Channels())
	}
	s.src = src
	return nil
}

// seek restarts the decoder and skips to target. The consumer is parked
// (Available is zero) so the producer may move head back to tail.
func (s *Stream) seek(target int64) error {
	if s.src != nil {
		_ = s.src.Close()
		s.src = nil
	}
	s.head.Store(s.tail.Load())
	s.ended.Store(false)
	s.err.Store(nil)
	s.emptyLoop = false

	if err := s.reopen(); err != nil {
		return s.fail(err)
	}

	for skipped := int64(0); skipped < target; {
		want := int(min(int64(s.chunkFrames), target-skipped))
		n, err := s.src.ReadFrames(s.chunk[:want*s.channels])
		skipped += int64(n)
		if errors.Is(err, io.EOF) {
			if skipped < target {
				return s.fail(fmt.Errorf("%w: seek to %d past end %d", ErrOutOfRange, target, skipped))
			}
			break
		}
		if err != nil {
			return s.fail(err)
		}
		if n == 0 {
			return s.fail(fmt.Errorf("%w: decoder stalled while seeking", audio.ErrDecode))
		}
	}
	return nil
}

func (s *Stream) write(samples []float32) {
	frames := len(samples) / s.channels
	start := int(s.head.Load() % s.capacity)
	first := min(frames, int(s.capacity)-start)

	copy(s.ring[start*s.channels:], samples[:first*s.channels])
	copy(s.ring, samples[first*s.channels:])

	s.head.Add(uint64(frames))
}

func (s *Stream) fail(err error) error {
	err = audio.DecodeError(err)
	s.err.Store(&err)
	s.ended.Store(true)
	return err
}

// Close releases the decoder. Consumers must be detached first.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.streamer.Load(); st != nil {
		st.Remove(s)
	}
	s.closed = true
	if s.src == nil {
		return nil
	}
	err := s.src.Close()
	s.src = nil
	if err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}
