// SPDX-License-Identifier: EPL-2.0

package output

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/formats/wav"
)

// rampRenderer writes a rising sequence and counts frames.
type rampRenderer struct {
	frames int
	calls  int
}

func (r *rampRenderer) Render(out []float32) {
	r.calls++
	for i := 0; i+1 < len(out); i += 2 {
		v := float32(r.frames%100) / 100
		out[i], out[i+1] = v, -v
		r.frames++
	}
}

func TestPumpFloat32(t *testing.T) {
	t.Parallel()

	r := &rampRenderer{}
	p := newPump(r, Float32, 4)
	dst := make([]byte, 3*8+5)
	n, err := p.Read(dst)
	if err != nil || n != 24 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	for f := range 3 {
		l := math.Float32frombits(binary.LittleEndian.Uint32(dst[8*f:]))
		rr := math.Float32frombits(binary.LittleEndian.Uint32(dst[8*f+4:]))
		if want := float32(f) / 100; l != want || rr != -want {
			t.Errorf("frame %d = (%v, %v)", f, l, rr)
		}
	}
	for _, b := range dst[24:] {
		if b != 0 {
			t.Fatal("partial frame tail should be zero")
		}
	}
}

func TestPumpInt16(t *testing.T) {
	t.Parallel()

	r := &rampRenderer{frames: 50}
	p := newPump(r, Int16, 1)
	dst := make([]byte, 2*4)
	if n, _ := p.Read(dst); n != 8 {
		t.Fatalf("n = %d", n)
	}
	if l := int16(binary.LittleEndian.Uint16(dst)); l != 16383 {
		t.Errorf("left = %d, want 16383", l)
	}
	if rr := int16(binary.LittleEndian.Uint16(dst[2:])); rr != -16383 {
		t.Errorf("right = %d, want -16383", rr)
	}
	if r.frames != 52 {
		t.Errorf("rendered %d frames", r.frames-50)
	}
}

func TestPumpNoAllocs(t *testing.T) {
	p := newPump(&rampRenderer{}, Float32, 256)
	dst := make([]byte, 256*8)
	if allocs := testing.AllocsPerRun(50, func() { p.fill(dst) }); allocs > 0 {
		t.Errorf("fill allocated %v times", allocs)
	}
}

func TestDeviceOptions(t *testing.T) {
	t.Parallel()

	if _, err := (DeviceOptions{}).withDefaults(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero rate: %v", err)
	}
	if _, err := (DeviceOptions{SampleRate: 1, Format: SampleFormat(5)}).withDefaults(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad format: %v", err)
	}
	o, err := DeviceOptions{SampleRate: 48000}.withDefaults()
	if err != nil {
		t.Fatal(err)
	}
	if o.Latency != DefaultLatency || o.periodFrames() != 960 {
		t.Errorf("defaults = %+v, period %d", o, o.periodFrames())
	}

	for in, want := range map[string]SampleFormat{"f32": Float32, "S16": Int16, "": Float32} {
		if got, err := ParseSampleFormat(in); err != nil || got != want {
			t.Errorf("ParseSampleFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseSampleFormat("u8"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("u8: %v", err)
	}
}

func TestOfflineWritesWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mix.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	off, err := NewOffline(f, OfflineOptions{SampleRate: 8000, Frames: 1000, BlockFrames: 128, BitDepth: 24}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	r := &rampRenderer{}
	if err := off.Start(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if off.Written() != 1000 || r.frames != 1000 || r.calls != 8 {
		t.Fatalf("written %d, rendered %d in %d calls", off.Written(), r.frames, r.calls)
	}
	if err := off.Start(context.Background(), r); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start: %v", err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	src, err := wav.Decoder{}.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if src.SampleRate() != 8000 || src.Channels() != 2 || audio.Length(src) != 1000 {
		t.Fatalf("decoded %d Hz %d ch %d frames", src.SampleRate(), src.Channels(), audio.Length(src))
	}
	samples, err := audio.ReadAll(src, 256)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 1000 {
		want := float32(i%100) / 100
		if math.Abs(float64(samples[2*i]-want)) > 1e-5 || math.Abs(float64(samples[2*i+1]+want)) > 1e-5 {
			t.Fatalf("frame %d = (%v, %v), want ±%v", i, samples[2*i], samples[2*i+1], want)
		}
	}
}

func TestOfflineCancelled(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "cut.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	off, err := NewOffline(f, OfflineOptions{SampleRate: 8000, Frames: 1 << 20}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := off.Start(ctx, &rampRenderer{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if off.Written() != 0 {
		t.Errorf("written = %d", off.Written())
	}
}

func TestNewOfflineValidation(t *testing.T) {
	t.Parallel()

	for _, o := range []OfflineOptions{
		{SampleRate: 0, Frames: 1},
		{SampleRate: 8000, Frames: -1},
		{SampleRate: 8000, BlockFrames: -2},
	} {
		if _, err := NewOffline(nil, o, zerolog.Nop()); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%+v: %v", o, err)
		}
	}
}

func TestPipeWritesWAV16(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p, err := NewPipe(&out, OfflineOptions{SampleRate: 8000, Frames: 300, BlockFrames: 64}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	r := &rampRenderer{}
	if err := p.Start(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if p.Written() != 300 || r.frames != 300 || r.calls != 5 {
		t.Fatalf("written %d, rendered %d in %d calls", p.Written(), r.frames, r.calls)
	}
	if got := binary.LittleEndian.Uint16(out.Bytes()[34:36]); got != 16 {
		t.Fatalf("bits per sample = %d", got)
	}

	src, err := wav.Decoder{}.Decode(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if src.SampleRate() != 8000 || src.Channels() != 2 || audio.Length(src) != 300 {
		t.Fatalf("decoded %d Hz %d ch %d frames", src.SampleRate(), src.Channels(), audio.Length(src))
	}
	samples, err := audio.ReadAll(src, 128)
	if err != nil {
		t.Fatal(err)
	}
	for i := range 300 {
		want := float32(i%100) / 100
		if math.Abs(float64(samples[2*i]-want)) > 1e-4 || math.Abs(float64(samples[2*i+1]+want)) > 1e-4 {
			t.Fatalf("frame %d = (%v, %v), want ±%v", i, samples[2*i], samples[2*i+1], want)
		}
	}
}

func TestPipeCancelledStillValid(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	p, err := NewPipe(&out, OfflineOptions{SampleRate: 8000, Frames: 1 << 20}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Start(ctx, &rampRenderer{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if out.Len() != 44 || p.Written() != 0 {
		t.Errorf("wrote %d bytes, %d frames; want a bare header", out.Len(), p.Written())
	}
}

func TestNewPipeRejectsWideSamples(t *testing.T) {
	t.Parallel()

	if _, err := NewPipe(nil, OfflineOptions{SampleRate: 8000, BitDepth: 24}, zerolog.Nop()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("24-bit pipe: %v", err)
	}
}

var _ = []Bridge{(*Oto)(nil), (*Malgo)(nil), (*Offline)(nil), (*Pipe)(nil)}

func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()

	if _, err := Open("alsa-direct", DeviceOptions{SampleRate: 48000}, zerolog.Nop()); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("err = %v, want ErrUnknownBackend", err)
	}
}
