// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	ErrOutOfRangeSeek = errors.New("seek position outside source length")
	ErrQueueFull      = errors.New("command queue full")
	ErrUnknownSource  = errors.New("unknown source")
	ErrUnknownBus     = errors.New("unknown bus")
	ErrPrimaryBus     = errors.New("primary bus cannot be removed")
	ErrClosed         = errors.New("context closed")
	ErrInvalidParam   = errors.New("invalid parameter")
	ErrTooManySources = errors.New("source limit reached")
	ErrInvalidConfig  = errors.New("invalid engine config")
)
