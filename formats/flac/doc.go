// SPDX-License-Identifier: EPL-2.0

// Package flac adapts github.com/mewkiz/flac to audio.Source.
//
// Frames are decoded one at a time and split across ReadFrames calls as
// needed, so memory stays bounded by the largest FLAC block. Any bit depth
// from 4 to 32 is normalised to [-1, 1).
package flac
