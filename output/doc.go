// SPDX-License-Identifier: EPL-2.0

// Package output drives an engine's Render from an audio device or a file.
//
// A Bridge pulls interleaved stereo float32 blocks from a Renderer at the
// device's pace. Oto and Malgo talk to the sound card through
// ebitengine/oto and miniaudio; Offline renders a fixed number of frames
// into a WAV file as fast as possible.
package output
