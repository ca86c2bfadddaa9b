// SPDX-License-Identifier: EPL-2.0

// Package mp3 adapts github.com/hajimehoshi/go-mp3 to audio.Source.
//
// The decoder always produces 16-bit stereo at the stream's sample rate;
// mono files come out with both channels equal. Length is reported when
// the input implements io.Seeker (an *os.File or *bytes.Reader), since
// go-mp3 has to scan the frame headers to count samples.
package mp3
