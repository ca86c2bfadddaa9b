// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/ik5/audspace/audio"
)

// writeAIFF encodes interleaved samples with go-audio's own encoder.
func writeAIFF(t *testing.T, rate, channels, bitDepth int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "in.aiff")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := aiff.NewEncoder(f, rate, bitDepth, channels)
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("encode close: %v", err)
	}
	return path
}

func TestDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		bitDepth int
		data     []int
		want     []float32
	}{
		{
			name:     "16-bit stereo",
			channels: 2,
			bitDepth: 16,
			data:     []int{16384, -16384, 0, 8192},
			want:     []float32{0.5, -0.5, 0, 0.25},
		},
		{
			name:     "24-bit mono",
			channels: 1,
			bitDepth: 24,
			data:     []int{4194304, -8388608, 0},
			want:     []float32{0.5, -1, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeAIFF(t, 44100, tt.channels, tt.bitDepth, tt.data)
			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}

			// io.MultiReader hides Seek, so the buffering path runs too.
			for _, r := range []io.Reader{bytes.NewReader(raw), io.MultiReader(bytes.NewReader(raw))} {
				src, err := Decoder{}.Decode(r)
				if err != nil {
					t.Fatalf("Decode: %v", err)
				}
				if src.Channels() != tt.channels || src.SampleRate() != 44100 {
					t.Fatalf("layout = %d Hz/%d ch", src.SampleRate(), src.Channels())
				}
				if got, want := audio.Length(src), int64(len(tt.data)/tt.channels); got != want {
					t.Errorf("Length() = %d, want %d", got, want)
				}

				got, err := audio.ReadAll(src, 1)
				if err != nil {
					t.Fatalf("ReadAll: %v", err)
				}
				if len(got) != len(tt.want) {
					t.Fatalf("got %d samples, want %d", len(got), len(tt.want))
				}
				for i := range tt.want {
					if got[i] != tt.want[i] {
						t.Errorf("sample %d = %v, want %v", i, got[i], tt.want[i])
					}
				}
			}
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader([]byte("RIFF0000WAVEfmt ")))
	if !errors.Is(err, ErrNotAiffFile) || !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrNotAiffFile", err)
	}
}

type stubPCM struct {
	n   int
	err error
}

func (s stubPCM) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	for i := range s.n {
		buf.Data[i] = -64
	}
	return s.n, s.err
}

func TestSourceReadFrames(t *testing.T) {
	t.Parallel()

	boom := errors.New("short chunk")
	tests := []struct {
		name       string
		dec        stubPCM
		wantFrames int
		wantErr    error
	}{
		{name: "data", dec: stubPCM{n: 4}, wantFrames: 2},
		{name: "data then eof", dec: stubPCM{n: 2, err: io.EOF}, wantFrames: 1},
		{name: "eof", dec: stubPCM{}, wantErr: io.EOF},
		{name: "failure", dec: stubPCM{err: boom}, wantErr: audio.ErrDecode},
		{name: "partial failure", dec: stubPCM{n: 2, err: boom}, wantFrames: 1, wantErr: audio.ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := &source{dec: tt.dec, sampleRate: 8000, channels: 2, bitDepth: 8}
			dst := make([]float32, 4)
			n, err := src.ReadFrames(dst)
			if n != tt.wantFrames {
				t.Errorf("frames = %d, want %d", n, tt.wantFrames)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected err %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			for i := range n * 2 {
				if dst[i] != -0.5 {
					t.Fatalf("dst[%d] = %v, want -0.5", i, dst[i])
				}
			}
		})
	}

	src := &source{dec: stubPCM{}, channels: 2, bitDepth: 16}
	if _, err := src.ReadFrames(make([]float32, 1)); !errors.Is(err, audio.ErrInvalidDstSize) {
		t.Errorf("odd dst: err = %v", err)
	}
}
