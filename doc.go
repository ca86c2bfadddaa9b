// SPDX-License-Identifier: EPL-2.0

// Package audspace is a real-time spatial audio engine.
//
// Sounds are loaded into shared in-memory clips or opened as background
// streams, then placed in a 3D scene around a listener. Every tick the
// engine renders all playing sources into a stereo block, applying gain,
// pitch, distance attenuation and either equal-power panning or binaural
// HRTF filtering, and mixes them through buses that may carry effects.
//
// # Packages
//
//   - audio: the decoder interface, registry, resampler and mono mixer
//   - formats/wav, formats/mp3, formats/vorbis, formats/aiff, formats/flac:
//     decoders (and a WAV encoder)
//   - buffer: shared static clips and streaming buffers with a refill worker
//   - spatial: vectors, the listener frame, distance curves and the panner
//   - hrtf: the HRIR sphere, measured and synthetic datasets and the
//     binaural convolver
//   - effects: biquad filters, reverb and attenuation for buses
//   - engine: the audio context, sources, buses and the render tick
//   - output: device bridges (oto, malgo) and an offline WAV renderer
//
// # Quick Start
//
//	clip, _ := audspace.Load("step.wav", 48000)
//	ctx, _ := engine.New(engine.Config{SampleRate: 48000})
//	defer ctx.Close()
//
//	id, _ := ctx.AddSource(clip, engine.WithSpatial(engine.SpatialParams{
//		Position: spatial.Vec3{X: 2, Z: 2},
//		Rolloff:  spatial.DefaultRolloff(),
//	}), engine.Autoplay())
//
//	dev, _ := output.Open("oto", output.DeviceOptions{SampleRate: 48000}, zerolog.Nop())
//	_ = dev.Start(context.Background(), ctx)
//
// Control calls may come from any goroutine; they are queued and applied at
// the start of the next tick.
package audspace
