// SPDX-License-Identifier: EPL-2.0

// Package engine mixes static and streamed sources through effect buses
// into an interleaved stereo float32 buffer.
//
// A Context is split in two halves. Control calls (AddSource, Play,
// SetListener, ...) validate and enqueue commands on a bounded queue and
// never wait for the mixer. Render, called by an output bridge once per
// device period, drains the queue, renders every playing source in
// insertion order, runs each bus through its effects, applies the master
// gain and hard clips the result. Render does not allocate and takes no
// lock shared with control calls.
//
// Positional sources are downmixed to mono and spatialized either with the
// equal-power panner from package spatial or, when the context has an HRTF
// sphere, binaurally with package hrtf.
package engine
