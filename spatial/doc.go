// SPDX-License-Identifier: EPL-2.0

// Package spatial holds the listener geometry, distance curves and the
// equal-power panner used for positional sources.
//
// Listener space is right handed around the head: +X out of the right ear,
// +Y up, +Z straight ahead. Azimuth is atan2(x, z), so a source at +90° is
// on the right; elevation is atan2(y, √(x²+z²)).
package spatial
