// SPDX-License-Identifier: EPL-2.0

package buffer

import "errors"

var (
	ErrOutOfRange     = errors.New("frame window outside buffer")
	ErrUnderrun       = errors.New("stream buffer underrun")
	ErrStreamClaimed  = errors.New("stream already owned by a source")
	ErrEmpty          = errors.New("buffer holds no frames")
	ErrInvalidLayout  = errors.New("invalid sample rate or channel count")
	ErrStreamerClosed = errors.New("streamer closed")
)
