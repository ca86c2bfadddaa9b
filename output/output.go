// SPDX-License-Identifier: EPL-2.0

package output

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ik5/audspace/utils"
)

// Renderer produces len(out)/2 interleaved stereo frames.
type Renderer interface {
	Render(out []float32)
}

// Bridge feeds a Renderer to a sink. Start blocks until ctx is cancelled
// or, for finite sinks, until everything was written.
type Bridge interface {
	Start(ctx context.Context, r Renderer) error
	Close() error
}

// SampleFormat is the PCM encoding sent to a device.
type SampleFormat int

const (
	Float32 SampleFormat = iota
	Int16
)

func (f SampleFormat) String() string {
	switch f {
	case Float32:
		return "f32"
	case Int16:
		return "s16"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
}

// ParseSampleFormat accepts "f32" and "s16".
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f32", "float32", "":
		return Float32, nil
	case "s16", "int16":
		return Int16, nil
	}
	return 0, fmt.Errorf("%w: sample format %q", ErrInvalidConfig, s)
}

func (f SampleFormat) size() int {
	if f == Int16 {
		return 2
	}
	return 4
}

const channels = 2

// DeviceOptions configure the realtime bridges.
type DeviceOptions struct {
	SampleRate int
	Format     SampleFormat
	// Latency is the device buffer length.
	Latency time.Duration
}

const DefaultLatency = 20 * time.Millisecond

func (o DeviceOptions) withDefaults() (DeviceOptions, error) {
	if o.SampleRate <= 0 {
		return o, fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, o.SampleRate)
	}
	if o.Format != Float32 && o.Format != Int16 {
		return o, fmt.Errorf("%w: %v", ErrInvalidConfig, o.Format)
	}
	if o.Latency <= 0 {
		o.Latency = DefaultLatency
	}
	return o, nil
}

// periodFrames is the number of frames in one device buffer.
func (o DeviceOptions) periodFrames() int {
	return max(1, int(o.Latency.Seconds()*float64(o.SampleRate)))
}

// pcmPump renders into a byte buffer in the device's sample format.
type pcmPump struct {
	r      Renderer
	format SampleFormat
	buf    []float32
}

func newPump(r Renderer, format SampleFormat, frames int) *pcmPump {
	return &pcmPump{r: r, format: format, buf: make([]float32, channels*frames)}
}

// fill renders as many whole frames as fit into dst, zeroes any tail and
// returns the bytes covered by whole frames.
func (p *pcmPump) fill(dst []byte) int {
	frameBytes := channels * p.format.size()
	frames := len(dst) / frameBytes
	if cap(p.buf) < channels*frames {
		p.buf = make([]float32, channels*frames)
	}
	samples := p.buf[:channels*frames]
	p.r.Render(samples)

	switch p.format {
	case Int16:
		for i, s := range samples {
			binary.LittleEndian.PutUint16(dst[2*i:], uint16(utils.Float32ToInt16(s)))
		}
	default:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(s))
		}
	}
	clear(dst[frames*frameBytes:])
	return frames * frameBytes
}

// Read implements io.Reader for pull-based players. It only hands out whole
// frames and never fails.
func (p *pcmPump) Read(dst []byte) (int, error) {
	return p.fill(dst), nil
}

// Backends lists the realtime bridges Open accepts.
var Backends = []string{"oto", "malgo"}

// Open creates a realtime bridge by name.
func Open(backend string, opts DeviceOptions, log zerolog.Logger) (Bridge, error) {
	switch strings.ToLower(backend) {
	case "oto", "":
		b, err := NewOto(opts, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "malgo":
		b, err := NewMalgo(opts, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownBackend, backend, strings.Join(Backends, ", "))
}
