// SPDX-License-Identifier: EPL-2.0

package effects

import "errors"

var (
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrInvalidFrequency  = errors.New("frequency must be between 0 and nyquist")
	ErrInvalidQ          = errors.New("q must be positive")
	ErrInvalidParam      = errors.New("invalid effect parameter")
)
