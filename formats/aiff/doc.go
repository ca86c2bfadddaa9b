// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes uncompressed AIFF through github.com/go-audio/aiff.
//
// 8, 16, 24 and 32 bit big-endian PCM is accepted with any channel count.
// go-audio needs random access to walk the IFF chunks, so non-seekable
// inputs are buffered in memory first.
package aiff
