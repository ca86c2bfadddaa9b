// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/buffer"
	"github.com/ik5/audspace/formats/aiff"
	"github.com/ik5/audspace/formats/flac"
	"github.com/ik5/audspace/formats/mp3"
	"github.com/ik5/audspace/formats/vorbis"
	"github.com/ik5/audspace/formats/wav"
)

var (
	defaultRegistry     *audio.Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry knows every bundled format, keyed by file extension.
func DefaultRegistry() *audio.Registry {
	defaultRegistryOnce.Do(func() {
		r := audio.NewRegistry()
		r.Register("wav", wav.Decoder{})
		r.Register("wave", wav.Decoder{})
		r.Register("aiff", aiff.Decoder{})
		r.Register("aif", aiff.Decoder{})
		r.Register("mp3", mp3.Decoder{})
		r.Register("ogg", vorbis.Decoder{})
		r.Register("oga", vorbis.Decoder{})
		r.Register("flac", flac.Decoder{})
		defaultRegistry = r
	})
	return defaultRegistry
}

// fileSource closes the file together with the decoder.
type fileSource struct {
	audio.Source
	f *os.File
}

func (s *fileSource) Length() int64 { return audio.Length(s.Source) }

func (s *fileSource) Close() error {
	return errors.Join(s.Source.Close(), s.f.Close())
}

// Open decodes path with the decoder registered for its extension.
func Open(path string) (audio.Source, error) {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		return nil, fmt.Errorf("%s: %w", path, audio.ErrUnsupportedFormat)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	src, err := DefaultRegistry().Decode(format, f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &fileSource{Source: src, f: f}, nil
}

// Load decodes the whole file into a shareable clip, resampled to rate
// unless rate is zero.
func Load(path string, rate int) (*buffer.Static, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	var opts []buffer.DecodeOption
	if rate > 0 {
		opts = append(opts, buffer.WithSampleRate(rate))
	}
	clip, err := buffer.Decode(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// OpenStream prepares path for streaming playback. The file is reopened on
// every loop and seek.
func OpenStream(path string, opts ...buffer.StreamOption) (*buffer.Stream, error) {
	return buffer.NewStream(func() (audio.Source, error) { return Open(path) }, opts...)
}
