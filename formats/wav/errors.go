// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"errors"
	"fmt"

	"github.com/ik5/audspace/audio"
)

// Rejections wrap audio.ErrUnsupportedFormat, broken files wrap audio.ErrDecode.
var (
	ErrNotWavFile           = fmt.Errorf("%w: not a WAV file", audio.ErrUnsupportedFormat)
	ErrOnlyPCMSupported     = fmt.Errorf("%w: only integer PCM WAV supported", audio.ErrUnsupportedFormat)
	ErrUnsupportedBitDepth  = fmt.Errorf("%w: unsupported WAV bit depth", audio.ErrUnsupportedFormat)
	ErrUnsupportedWavLayout = fmt.Errorf("%w: unsupported WAV layout", audio.ErrDecode)
	ErrUnsupportedWavChunks = fmt.Errorf("%w: unsupported WAV chunks", audio.ErrDecode)
	ErrInvalidChannels      = errors.New("channel count must be 1 or more")
)
