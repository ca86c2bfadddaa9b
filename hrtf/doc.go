// SPDX-License-Identifier: EPL-2.0

// Package hrtf renders positional sources binaurally.
//
// A Sphere stores head-related impulse responses on a regular grid so that
// lookups by continuous direction are constant time and allocation free;
// Sample blends the four surrounding grid nodes bilinearly. Directions
// outside the measured elevation range are clamped to its edge. Spheres
// come from measured WAV files (LoadSphere), from explicit points
// (NewSphere) or from an analytic spherical head model (Spherical).
//
// A Renderer turns one mono source into stereo by direct block convolution
// with the interpolated pair.
package hrtf
