// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ik5/audspace/internal/audiotest"
)

func readAllFrames(t *testing.T, src Source) []float32 {
	t.Helper()

	out, err := ReadAll(src, 1024)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return out
}

func TestResampler_Metadata(t *testing.T) {
	t.Parallel()

	resampler := NewResampler(audiotest.NewSilentSource(44100, 2, 1000), 8000)

	if resampler.SampleRate() != 8000 {
		t.Errorf("Resampler.SampleRate() = %d, want 8000", resampler.SampleRate())
	}
	if resampler.Channels() != 2 {
		t.Errorf("Resampler.Channels() = %d, want 2", resampler.Channels())
	}
}

func TestResampler_SameRateIsExact(t *testing.T) {
	t.Parallel()

	src := audiotest.NewRampSource(8000, 1, 100)
	want := src.Samples()
	got := readAllFrames(t, NewResampler(src, 8000))

	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResampler_Lengths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		srcRate   int
		dstRate   int
		srcFrames int
		want      int
		tolerance int
	}{
		{"down 44.1k->8k", 44100, 8000, 44100, 8000, 100},
		{"up 8k->44.1k", 8000, 44100, 8000, 44100, 500},
		{"up 22.05k->48k", 22050, 48000, 22050, 48000, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewSineSource(tt.srcRate, 1, tt.srcFrames, 440)
			samples := readAllFrames(t, NewResampler(src, tt.dstRate))

			if len(samples) < tt.want-tt.tolerance || len(samples) > tt.want+tt.tolerance {
				t.Errorf("resampled %d frames, want ≈%d (±%d)", len(samples), tt.want, tt.tolerance)
			}
			for i, s := range samples {
				if s < -1.5 || s > 1.5 {
					t.Fatalf("samples[%d] = %v, outside [-1.5, 1.5]", i, s)
				}
			}
		})
	}
}

func TestResampler_StereoPreserved(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(44100, 2, 1000, func(_ int, channel int) float32 {
		if channel == 0 {
			return 0.3
		}
		return 0.7
	})

	buf := make([]float32, 20)
	n, err := NewResampler(src, 8000).ReadFrames(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("ReadFrames() error = %v", err)
	}
	if n != 10 {
		t.Fatalf("ReadFrames() n = %d, want 10", n)
	}

	for f := range n {
		if math.Abs(float64(buf[f*2]-0.3)) > 0.01 {
			t.Errorf("frame[%d] left = %v, want ≈0.3", f, buf[f*2])
		}
		if math.Abs(float64(buf[f*2+1]-0.7)) > 0.01 {
			t.Errorf("frame[%d] right = %v, want ≈0.7", f, buf[f*2+1])
		}
	}
}

func TestResampler_EOFIsSticky(t *testing.T) {
	t.Parallel()

	resampler := NewResampler(audiotest.NewSilentSource(44100, 1, 100), 8000)
	readAllFrames(t, resampler)

	n, err := resampler.ReadFrames(make([]float32, 16))
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("after EOF ReadFrames() = (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestResampler_InvalidDstSize(t *testing.T) {
	t.Parallel()

	resampler := NewResampler(audiotest.NewSilentSource(44100, 2, 1000), 8000)
	if _, err := resampler.ReadFrames(make([]float32, 7)); !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("ReadFrames() error = %v, want ErrInvalidDstSize", err)
	}
}

func TestResampler_DecodeErrorWrapped(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSineSource(16000, 1, 1000, 440)
	src.FailAfter = 10

	_, err := ReadAll(NewResampler(src, 8000), 64)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("ReadAll() error = %v, want ErrDecode", err)
	}
}

func TestResampler_Length(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(16000, 1, 1600), 8000)
	if got := r.Length(); got != 800 {
		t.Errorf("Length() = %d, want 800", got)
	}
}

func BenchmarkResampler_Downsample(b *testing.B) {
	src := audiotest.NewSineSource(44100, 2, 100000, 440.0)
	buf := make([]float32, 4096)

	b.ReportAllocs()

	for b.Loop() {
		src.Reset()
		resampler := NewResampler(src, 8000)
		for {
			_, err := resampler.ReadFrames(buf)
			if err != nil {
				break
			}
		}
	}
}
