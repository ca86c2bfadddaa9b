// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDstSize     = errors.New("dst size must be multiple of channels")
	ErrDecode             = errors.New("decode error")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrInvalidSampleRate  = errors.New("sample rate must be positive")
	ErrInvalidChannelSize = errors.New("channel count must be positive")
)

// DecodeError wraps err so that errors.Is(result, ErrDecode) holds.
// nil and io.EOF are returned unchanged.
func DecodeError(err error) error {
	if err == nil || isEOF(err) || errors.Is(err, ErrDecode) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDecode, err)
}

func unsupported(format string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
