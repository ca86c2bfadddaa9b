// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"sort"
	"strings"
	"sync"
)

// Source is the decoder adapter every codec presents to the engine.
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadFrames fills dst with interleaved float32 frames in [-1,1].
	// len(dst) must be a multiple of Channels(). Returns the number of frames
	// written. When the stream is finished err is io.EOF; decoding failures
	// are wrapped with ErrDecode.
	ReadFrames(dst []float32) (frames int, err error)

	// Close releases any resources.
	Close() error
}

// Lengther is implemented by sources that know their total length in frames.
type Lengther interface {
	Length() int64
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Length returns the total frame count of src, or -1 when unknown.
func Length(src Source) int64 {
	if l, ok := src.(Lengther); ok {
		return l.Length()
	}
	return -1
}

// Registry for decoders by format key (e.g., "wav", "mp3", "ogg").
// Keys are case-insensitive and may carry a leading dot.
type Registry struct {
	codecs map[string]Decoder

	mtx *sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.RWMutex{},
	}
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(format, "."))
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[normalizeFormat(format)] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	d, ok := r.codecs[normalizeFormat(format)]
	return d, ok
}

// Formats lists the registered keys in sorted order.
func (r *Registry) Formats() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Decode looks up the decoder for format and decodes r with it.
func (r *Registry) Decode(format string, rd io.Reader) (Source, error) {
	d, ok := r.Get(format)
	if !ok {
		return nil, unsupported(format)
	}
	return d.Decode(rd)
}
