// SPDX-License-Identifier: EPL-2.0

package buffer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/internal/audiotest"
)

// rampOpener yields a fresh mono ramp 0, 1, 2, ... per open and counts opens.
func rampOpener(frames int, opens *atomic.Int32) Opener {
	return func() (audio.Source, error) {
		opens.Add(1)
		return audiotest.NewMockSource(8000, 1, frames, func(f, _ int) float32 {
			return float32(f)
		}), nil
	}
}

// drain consumes everything currently available.
func drain(s *Stream) []float32 {
	var out []float32
	for i := range s.Available() {
		out = append(out, s.Frame(i, 0))
	}
	s.Advance(len(out))
	return out
}

func TestStreamFillAndAdvance(t *testing.T) {
	t.Parallel()

	var opens atomic.Int32
	s, err := NewStream(rampOpener(10, &opens), WithLookahead(4), WithChunk(3))
	if err != nil {
		t.Fatal(err)
	}
	if s.Length() != 10 || s.SampleRate() != 8000 || s.Channels() != 1 {
		t.Fatalf("layout = %d frames %d Hz %d ch", s.Length(), s.SampleRate(), s.Channels())
	}
	if s.Available() != 0 {
		t.Fatalf("nothing should be decoded before Fill")
	}

	var got []float32
	for range 10 {
		if _, err := s.Fill(); err != nil {
			t.Fatal(err)
		}
		if s.Available() > 4 {
			t.Fatalf("ring overfilled: %d", s.Available())
		}
		got = append(got, drain(s)...)
		if s.Ended() {
			break
		}
	}

	if len(got) != 10 {
		t.Fatalf("got %d frames, want 10", len(got))
	}
	for i, v := range got {
		if v != float32(i) {
			t.Fatalf("frame %d = %v", i, v)
		}
	}
	if !s.Ended() || !s.Finished() || s.Err() != nil {
		t.Errorf("Ended() = %v, Finished() = %v, Err() = %v", s.Ended(), s.Finished(), s.Err())
	}
	if opens.Load() != 1 {
		t.Errorf("opened %d times, want 1", opens.Load())
	}
}

func TestStreamAdvanceClamps(t *testing.T) {
	t.Parallel()

	var opens atomic.Int32
	s, err := NewStream(rampOpener(10, &opens), WithLookahead(8))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Fill(); err != nil {
		t.Fatal(err)
	}
	if n := s.Advance(100); n != 8 {
		t.Errorf("Advance(100) = %d, want 8", n)
	}
	if s.Position() != 8 {
		t.Errorf("Position() = %d", s.Position())
	}
	if n := s.Advance(1); n != 0 {
		t.Errorf("Advance on empty ring = %d", n)
	}
}

func TestStreamLoopRestartsDecoder(t *testing.T) {
	t.Parallel()

	var opens atomic.Int32
	s, err := NewStream(rampOpener(5, &opens), WithLookahead(64))
	if err != nil {
		t.Fatal(err)
	}
	s.SetLooping(true)
	if _, err := s.Fill(); err != nil {
		t.Fatal(err)
	}

	got := drain(s)
	if len(got) != 64 {
		t.Fatalf("looping stream should fill the ring, got %d", len(got))
	}
	for i, v := range got {
		if v != float32(i%5) {
			t.Fatalf("frame %d = %v, want %v", i, v, i%5)
		}
	}
	if s.Ended() {
		t.Error("looping stream ended")
	}
	if s.Position() != 64%5 {
		t.Errorf("Position() = %d, want %d", s.Position(), 64%5)
	}
	if opens.Load() < 13 {
		t.Errorf("opened %d times, want a reopen per pass", opens.Load())
	}
}

func TestStreamLoopEmptyMaterialEnds(t *testing.T) {
	t.Parallel()

	var opens atomic.Int32
	s, err := NewStream(rampOpener(0, &opens))
	if err != nil {
		t.Fatal(err)
	}
	s.SetLooping(true)
	if _, err := s.Fill(); err != nil {
		t.Fatal(err)
	}
	if !s.Ended() {
		t.Fatal("empty looping material must end instead of spinning")
	}
}

func TestStreamSeek(t *testing.T) {
	t.Parallel()

	var opens atomic.Int32
	s, err := NewStream(rampOpener(100, &opens), WithLookahead(8), WithChunk(3))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Fill(); err != nil {
		t.Fatal(err)
	}
	drain(s)

	s.RequestSeek(42)
	if s.Available() != 0 {
		t.Fatal("pending seek must hide buffered frames")
	}
	if s.Ended() {
		t.Fatal("pending seek is not the end")
	}
	if _, err := s.Fill(); err != nil {
		t.Fatal(err)
	}

	got := drain(s)
	if len(got) != 8 || got[0] != 42 || got[7] != 49 {
		t.Fatalf("after seek got %v", got)
	}
	if s.Position() != 50 {
		t.Errorf("Position() = %d, want 50", s.Position())
	}
}

func TestStreamSeekPastEnd(t *testing.T) {
	t.Parallel()

	var opens atomic.Int32
	s, err := NewStream(rampOpener(10, &opens))
	if err != nil {
		t.Fatal(err)
	}
	s.RequestSeek(20)
	if _, err := s.Fill(); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
	if !s.Ended() || !errors.Is(s.Err(), ErrOutOfRange) {
		t.Errorf("Ended() = %v, Err() = %v", s.Ended(), s.Err())
	}
}

func TestStreamDecodeFailure(t *testing.T) {
	t.Parallel()

	s, err := NewStream(func() (audio.Source, error) {
		src := audiotest.NewSilentSource(8000, 2, 100)
		src.FailAfter = 6
		return src, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Fill()
	if !errors.Is(err, audio.ErrDecode) || !errors.Is(err, audiotest.ErrInjected) {
		t.Fatalf("err = %v", err)
	}
	if s.Available() != 6 {
		t.Errorf("frames before the failure should stay playable, got %d", s.Available())
	}
	s.Advance(6)
	if !s.Ended() || s.Err() == nil {
		t.Error("failed stream should end with an error")
	}
	if n, err := s.Fill(); n != 0 || err != nil {
		t.Errorf("Fill after failure = %d, %v", n, err)
	}
}

func TestStreamOpenFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("no such asset")
	if _, err := NewStream(func() (audio.Source, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	bad := func() (audio.Source, error) { return audiotest.NewSilentSource(0, 1, 1), nil }
	if _, err := NewStream(bad); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("err = %v, want ErrInvalidLayout", err)
	}
}

func TestStreamClaim(t *testing.T) {
	t.Parallel()

	var opens atomic.Int32
	s, err := NewStream(rampOpener(1, &opens))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Claim(); err != nil {
		t.Fatal(err)
	}
	if err := s.Claim(); !errors.Is(err, ErrStreamClaimed) {
		t.Fatalf("second Claim = %v", err)
	}
	s.Release()
	if err := s.Claim(); err != nil {
		t.Fatalf("Claim after Release = %v", err)
	}
}

func TestStreamClose(t *testing.T) {
	t.Parallel()

	var src *audiotest.MockSource
	s, err := NewStream(func() (audio.Source, error) {
		src = audiotest.NewSilentSource(8000, 1, 100)
		return src, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !src.Closed() {
		t.Error("Close should close the decoder")
	}
	if n, _ := s.Fill(); n != 0 {
		t.Errorf("Fill after Close = %d", n)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestStreamerRefillsInBackground(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewStreamer(zerolog.Nop(), time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	var opens atomic.Int32
	s, err := NewStream(rampOpener(1000, &opens), WithLookahead(16))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Add(s); err != nil {
		t.Fatal(err)
	}
	if s.Available() != 16 {
		t.Fatalf("Add should prime the ring, got %d", s.Available())
	}

	next := float32(0)
	deadline := time.Now().Add(5 * time.Second)
	for next < 1000 && time.Now().Before(deadline) {
		for _, v := range drain(s) {
			if v != next {
				t.Fatalf("frame = %v, want %v", v, next)
			}
			next++
		}
		time.Sleep(100 * time.Microsecond)
	}
	if next != 1000 {
		t.Fatalf("consumed %v frames before the deadline", next)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if w.Len() != 0 {
		t.Errorf("closed stream still registered")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run = %v", err)
	}
	if err := w.Add(s); !errors.Is(err, ErrStreamerClosed) {
		t.Errorf("Add after stop = %v", err)
	}
}
