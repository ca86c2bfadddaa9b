// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds synthetic decoder adapters for tests.
package audiotest

import (
	"errors"
	"io"
	"math"
	"sync/atomic"
)

// ErrInjected is returned by sources configured to fail.
var ErrInjected = errors.New("injected decode failure")

// MockSource is a test helper that generates audio data for testing.
// It implements the audio.Source interface (without importing it to avoid cycles).
type MockSource struct {
	sampleRate  int
	channels    int
	totalFrames int
	generated   int
	waveform    func(frame int, channel int) float32

	// FailAfter makes ReadFrames return ErrInjected once that many frames
	// were produced. Negative disables it.
	FailAfter int
	// MaxChunk caps the frames returned by one ReadFrames call. Zero disables it.
	MaxChunk int

	closed atomic.Bool
}

// NewMockSource creates a new mock audio source.
// totalFrames is the total number of frames to generate.
// waveform generates sample values given frame index and channel.
func NewMockSource(sampleRate, channels, totalFrames int, waveform func(frame int, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:  sampleRate,
		channels:    channels,
		totalFrames: totalFrames,
		waveform:    waveform,
		FailAfter:   -1,
	}
}

// NewSilentSource creates a mock source that generates silence (all zeros).
func NewSilentSource(sampleRate, channels, totalFrames int) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(int, int) float32 {
		return 0.0
	})
}

// NewSineSource creates a mock source that generates a sine wave.
func NewSineSource(sampleRate, channels, totalFrames int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(frame int, _ int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

// NewConstantSource creates a mock source with constant value.
func NewConstantSource(sampleRate, channels, totalFrames int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(int, int) float32 {
		return value
	})
}

// NewRampSource yields frame index / totalFrames on every channel, which makes
// frame positions easy to assert.
func NewRampSource(sampleRate, channels, totalFrames int) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(frame int, _ int) float32 {
		return float32(frame) / float32(totalFrames)
	})
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) Length() int64   { return int64(m.totalFrames) }
func (m *MockSource) Close() error    { m.closed.Store(true); return nil }

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool { return m.closed.Load() }

// Reset rewinds the generator.
func (m *MockSource) Reset() {
	m.generated = 0
}

// Samples renders the whole waveform as interleaved samples.
func (m *MockSource) Samples() []float32 {
	out := make([]float32, m.totalFrames*m.channels)
	for f := range m.totalFrames {
		for c := range m.channels {
			out[f*m.channels+c] = m.waveform(f, c)
		}
	}
	return out
}

func (m *MockSource) ReadFrames(dst []float32) (int, error) {
	if m.FailAfter >= 0 && m.generated >= m.FailAfter {
		return 0, ErrInjected
	}
	if m.generated >= m.totalFrames {
		return 0, io.EOF
	}

	framesToWrite := min(len(dst)/m.channels, m.totalFrames-m.generated)
	if m.MaxChunk > 0 {
		framesToWrite = min(framesToWrite, m.MaxChunk)
	}
	if m.FailAfter >= 0 {
		framesToWrite = min(framesToWrite, m.FailAfter-m.generated)
	}

	for frame := range framesToWrite {
		idx := m.generated + frame
		for ch := range m.channels {
			dst[frame*m.channels+ch] = m.waveform(idx, ch)
		}
	}

	m.generated += framesToWrite

	if m.generated >= m.totalFrames {
		return framesToWrite, io.EOF
	}

	return framesToWrite, nil
}
