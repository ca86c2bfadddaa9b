// SPDX-License-Identifier: EPL-2.0

package hrtf

import (
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/ik5/audspace/audio"
	"github.com/ik5/audspace/formats/wav"
)

// ParseName extracts the direction from an HRIR file name such as
// "az-30_el15.wav".
func ParseName(name string) (azimuth, elevation float64, err error) {
	base := strings.TrimSuffix(strings.ToLower(name), ".wav")
	azPart, elPart, ok := strings.Cut(strings.TrimPrefix(base, "az"), "_el")
	if !ok || !strings.HasPrefix(base, "az") || base == strings.ToLower(name) {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}

	azimuth, err = strconv.ParseFloat(azPart, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	elevation, err = strconv.ParseFloat(elPart, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return azimuth, elevation, nil
}

// LoadSphere reads a directory of stereo WAV files, one per measured
// direction, named az<deg>_el<deg>.wav. Left channel is the left ear.
// Other files in dir are ignored.
func LoadSphere(fsys fs.FS, dir string, opts ...SphereOption) (*Sphere, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read hrir dir: %w", err)
	}

	var points []Point
	rate := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(path.Ext(e.Name()), ".wav") {
			continue
		}
		az, el, err := ParseName(e.Name())
		if err != nil {
			return nil, err
		}

		p, r, err := loadPoint(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if rate != 0 && r != rate {
			return nil, fmt.Errorf("%w: %s is %d Hz, expected %d", ErrRateMismatch, e.Name(), r, rate)
		}
		rate = r
		p.Azimuth, p.Elevation = az, el
		points = append(points, p)
	}

	return NewSphere(rate, points, opts...)
}

func loadPoint(fsys fs.FS, name string) (Point, int, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return Point{}, 0, fmt.Errorf("%w", err)
	}
	defer f.Close()

	src, err := wav.Decoder{}.Decode(f)
	if err != nil {
		return Point{}, 0, fmt.Errorf("%w", err)
	}
	defer src.Close()

	if src.Channels() != 2 {
		return Point{}, 0, fmt.Errorf("%w: %d channels", ErrNotStereo, src.Channels())
	}

	samples, err := audio.ReadAll(src, 1024)
	if err != nil {
		return Point{}, 0, fmt.Errorf("%w", err)
	}

	frames := len(samples) / 2
	p := Point{Left: make([]float32, frames), Right: make([]float32, frames)}
	for i := range frames {
		p.Left[i] = samples[2*i]
		p.Right[i] = samples[2*i+1]
	}
	return p, src.SampleRate(), nil
}
