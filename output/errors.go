// SPDX-License-Identifier: EPL-2.0

package output

import "errors"

var (
	ErrAlreadyStarted = errors.New("bridge already started")
	ErrClosed         = errors.New("bridge closed")
	ErrInvalidConfig  = errors.New("invalid output config")
	ErrUnknownBackend = errors.New("unknown output backend")
)
