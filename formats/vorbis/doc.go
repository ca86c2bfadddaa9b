// SPDX-License-Identifier: EPL-2.0

// Package vorbis adapts github.com/jfreymuth/oggvorbis to audio.Source.
//
// The decoder is pure Go and produces float32 directly, so no integer
// conversion happens here. Length is available when the input can seek.
package vorbis
