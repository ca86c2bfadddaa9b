// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"

	"github.com/ik5/audspace/audio"
)

func TestWriteWAV16RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		frames   int
	}{
		{"mono", 1, 100},
		{"stereo", 2, 257},
		{"quad", 4, 10},
		{"empty", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			samples := make([]int16, tt.frames*tt.channels)
			for i := range samples {
				samples[i] = int16((i*997)%65536 - 32768)
			}

			var buf bytes.Buffer
			if err := WriteWAV16(&buf, 22050, tt.channels, samples); err != nil {
				t.Fatalf("WriteWAV16: %v", err)
			}
			if got, want := buf.Len(), 44+len(samples)*2; got != want {
				t.Fatalf("file size = %d, want %d", got, want)
			}
			if tt.frames == 0 {
				return
			}

			src, err := Decoder{}.Decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if src.SampleRate() != 22050 || src.Channels() != tt.channels {
				t.Fatalf("layout = %d Hz/%d ch", src.SampleRate(), src.Channels())
			}
			if got := audio.Length(src); got != int64(tt.frames) {
				t.Errorf("Length() = %d, want %d", got, tt.frames)
			}

			got, err := audio.ReadAll(src, 64)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if len(got) != len(samples) {
				t.Fatalf("decoded %d samples, want %d", len(got), len(samples))
			}
			for i, s := range samples {
				if want := float32(s) / 32768; got[i] != want {
					t.Fatalf("sample %d = %v, want %v", i, got[i], want)
				}
			}
		})
	}
}

func TestWriteWAV16InvalidChannels(t *testing.T) {
	t.Parallel()

	err := WriteWAV16(io.Discard, 8000, 0, []int16{1})
	if !errors.Is(err, ErrInvalidChannels) {
		t.Fatalf("err = %v, want ErrInvalidChannels", err)
	}
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, io.ErrClosedPipe
	}
	w.after--
	return len(p), nil
}

func TestWriteWAV16WriterErrors(t *testing.T) {
	t.Parallel()

	for _, after := range []int{0, 1} {
		err := WriteWAV16(&failingWriter{after: after}, 8000, 1, make([]int16, 10))
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("after=%d: err = %v, want io.ErrClosedPipe", after, err)
		}
	}
}

func TestEncoderRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	enc, err := NewEncoder(f, 48000, 2, 16)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}

	block := make([]float32, 2*128)
	for i := range 128 {
		v := float32(math.Sin(2 * math.Pi * float64(i) / 32))
		block[2*i] = v * 0.5
		block[2*i+1] = -v * 0.5
	}
	for range 3 {
		if err := enc.WriteFrames(block); err != nil {
			t.Fatalf("WriteFrames: %v", err)
		}
	}
	if enc.Frames() != 384 {
		t.Errorf("Frames() = %d, want 384", enc.Frames())
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	src, err := Decoder{}.Decode(in)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := audio.Length(src); got != 384 {
		t.Errorf("Length() = %d, want 384", got)
	}

	got, err := audio.ReadAll(src, 100)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 3*len(block) {
		t.Fatalf("decoded %d samples, want %d", len(got), 3*len(block))
	}
	for i, v := range got {
		if want := block[i%len(block)]; math.Abs(float64(v-want)) > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestEncoderRejectsLayout(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "x.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := NewEncoder(f, 8000, 0, 16); !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("channels=0: err = %v", err)
	}
	if _, err := NewEncoder(f, 8000, 1, 12); !errors.Is(err, ErrUnsupportedBitDepth) {
		t.Errorf("bitDepth=12: err = %v", err)
	}

	enc, err := NewEncoder(f, 8000, 2, 16)
	if err != nil {
		t.Fatal(err)
	}
	if err := enc.WriteFrames(make([]float32, 3)); !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("odd sample count: err = %v", err)
	}
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader([]byte("definitely not a riff file")))
	if !errors.Is(err, ErrNotWavFile) {
		t.Fatalf("err = %v, want ErrNotWavFile", err)
	}
	if !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Error("ErrNotWavFile should wrap audio.ErrUnsupportedFormat")
	}
}

type stubPCM struct {
	n   int
	err error
}

func (s stubPCM) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	for i := range s.n {
		buf.Data[i] = 16384
	}
	return s.n, s.err
}

func TestSourceReadFrames(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name       string
		dec        stubPCM
		wantFrames int
		wantEOF    bool
		wantDecode bool
	}{
		{name: "full read", dec: stubPCM{n: 8}, wantFrames: 4},
		{name: "drained", dec: stubPCM{}, wantEOF: true},
		{name: "eof with nothing", dec: stubPCM{err: io.EOF}, wantEOF: true},
		{name: "partial then failure", dec: stubPCM{n: 4, err: boom}, wantFrames: 2, wantDecode: true},
		{name: "failure", dec: stubPCM{err: boom}, wantDecode: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := &source{dec: tt.dec, sampleRate: 8000, channels: 2, bitDepth: 16}
			dst := make([]float32, 8)
			n, err := src.ReadFrames(dst)

			if n != tt.wantFrames {
				t.Errorf("frames = %d, want %d", n, tt.wantFrames)
			}
			if got := errors.Is(err, io.EOF); got != tt.wantEOF {
				t.Errorf("err = %v, want EOF %v", err, tt.wantEOF)
			}
			if got := errors.Is(err, audio.ErrDecode); got != tt.wantDecode {
				t.Errorf("err = %v, want ErrDecode %v", err, tt.wantDecode)
			}
			for i := range n * 2 {
				if dst[i] != 0.5 {
					t.Fatalf("dst[%d] = %v, want 0.5", i, dst[i])
				}
			}
		})
	}
}

func TestSourceInvalidDst(t *testing.T) {
	t.Parallel()

	src := &source{dec: stubPCM{}, sampleRate: 8000, channels: 2, bitDepth: 16}
	if _, err := src.ReadFrames(make([]float32, 3)); !errors.Is(err, audio.ErrInvalidDstSize) {
		t.Fatalf("err = %v, want ErrInvalidDstSize", err)
	}
}
