// SPDX-License-Identifier: EPL-2.0

// Package audio defines the decoder adapter contract used by the engine and
// the streaming primitives built on top of it.
//
//   - Source is the uniform pull interface every codec adapter implements
//   - Decoder builds a Source from an io.Reader, Registry maps format keys to decoders
//   - Resampler converts sample rates with cubic interpolation
//   - MonoMixer downmixes multi-channel material
//   - ReadAll and SliceSource move whole assets in and out of memory
//
// # Source Interface
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadFrames(dst []float32) (frames int, err error)
//	    Close() error
//	}
//
// Samples are interleaved float32 values in [-1, 1]. ReadFrames returns the
// number of frames (not samples) written. io.EOF marks the end of a stream;
// any other error is a decode failure and wraps ErrDecode so callers can test
// it with errors.Is.
//
// # Processing Chains
//
//	src, _ := registry.Decode("ogg", file)
//	mono := audio.NewMonoMixer(audio.NewResampler(src, 48000))
//	samples, err := audio.ReadAll(mono, 4096)
//
// # Format Registry
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{})
//	decoder, ok := registry.Get(".WAV") // keys are case-insensitive
package audio
