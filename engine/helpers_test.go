// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/buffer"
	"github.com/ik5/audspace/internal/audiotest"
)

const testRate = 48000

func newTestContext(t testing.TB, cfg Config) *Context {
	t.Helper()
	if cfg.SampleRate == 0 {
		cfg.SampleRate = testRate
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func staticOf(t testing.TB, rate, channels int, samples []float32) *buffer.Static {
	t.Helper()
	b, err := buffer.NewStatic(rate, channels, samples)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func constant(n int, v float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func sine(n, rate int, freq float64, amp float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = amp * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return s
}

// idleStreamer never runs, so tests drive refills by calling Fill.
func idleStreamer() *buffer.Streamer {
	return buffer.NewStreamer(zerolog.Nop(), time.Hour)
}

func rampStream(t testing.TB, frames int, opts ...buffer.StreamOption) *buffer.Stream {
	t.Helper()
	st, err := buffer.NewStream(func() (audio.Source, error) {
		return audiotest.NewMockSource(testRate, 1, frames, func(f, _ int) float32 {
			return float32(f+1) / float32(frames)
		}), nil
	}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func left(out []float32) []float32 {
	l := make([]float32, len(out)/2)
	for i := range l {
		l[i] = out[2*i]
	}
	return l
}

func rms(xs []float32) float64 {
	var e float64
	for _, x := range xs {
		e += float64(x) * float64(x)
	}
	return math.Sqrt(e / float64(len(xs)))
}

func peakAbs(xs []float32) float32 {
	var p float32
	for _, x := range xs {
		p = max(p, float32(math.Abs(float64(x))))
	}
	return p
}

// goertzel returns the signal power at freq.
func goertzel(xs []float32, rate int, freq float64) float64 {
	w := 2 * math.Pi * freq / float64(rate)
	coeff := 2 * math.Cos(w)
	var s1, s2 float64
	for _, x := range xs {
		s0 := float64(x) + coeff*s1 - s2
		s2, s1 = s1, s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}

// waitEvent reads events until one of kind arrives.
func waitEvent(t *testing.T, c *Context, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-c.Events():
			if !ok {
				t.Fatalf("events closed while waiting for %v", kind)
			}
			if e.Kind == kind {
				return e
			}
		case <-timeout:
			t.Fatalf("no %v event", kind)
		}
	}
}
