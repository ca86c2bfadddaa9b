// SPDX-License-Identifier: EPL-2.0

package hrtf

import "errors"

var (
	ErrNoPoints         = errors.New("hrtf dataset has no directions")
	ErrEmptyIR          = errors.New("hrtf impulse responses are empty")
	ErrInvalidDirection = errors.New("hrtf direction out of range")
	ErrInvalidRate      = errors.New("hrtf sample rate must be positive")
	ErrNotStereo        = errors.New("hrir file must be stereo")
	ErrRateMismatch     = errors.New("hrir files disagree on sample rate")
	ErrBadName          = errors.New("hrir file name must be az<deg>_el<deg>.wav")
)
