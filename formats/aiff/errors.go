// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"fmt"

	"github.com/ik5/audspace/audio"
)

var (
	ErrNotAiffFile           = fmt.Errorf("%w: not an AIFF file", audio.ErrUnsupportedFormat)
	ErrUnsupportedBitDepth   = fmt.Errorf("%w: unsupported AIFF bit depth", audio.ErrUnsupportedFormat)
	ErrUnsupportedAiffLayout = fmt.Errorf("%w: unsupported AIFF layout", audio.ErrDecode)
)
