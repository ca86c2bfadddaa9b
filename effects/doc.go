// SPDX-License-Identifier: EPL-2.0

// Package effects contains the DSP units that can be placed on a mixer bus.
//
// Every effect works in place on interleaved stereo float32 frames and keeps
// its own per-channel state between calls. Effects are owned by the render
// side once handed to the engine; build a new one instead of mutating a
// running effect.
package effects
