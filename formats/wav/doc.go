// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and encodes RIFF/WAVE integer PCM.
//
// Decoding goes through github.com/go-audio/wav and accepts 8, 16, 24 and
// 32 bit PCM (plain or WAVE_FORMAT_EXTENSIBLE) with any channel count. The
// returned audio.Source knows its length, so buffers can be presized:
//
//	f, _ := os.Open("step.wav")
//	src, err := wav.Decoder{}.Decode(f)
//	if errors.Is(err, audio.ErrUnsupportedFormat) {
//	    // float or compressed WAV
//	}
//
// Two writers exist. WriteWAV16 emits a complete 16-bit file to any
// io.Writer when the samples are known up front. Encoder streams float32
// frames to a seekable file and patches the header on Close; the offline
// output bridge renders through it.
package wav
