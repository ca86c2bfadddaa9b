// SPDX-License-Identifier: EPL-2.0

package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ik5/audspace/spatial"
)

var errBadPosition = errors.New("bad position")

// placement is one command line input: a file and where it sits.
type placement struct {
	path   string
	pos    spatial.Vec3
	placed bool
}

// parseInput splits "path@x,y,z". Without a position the input is placed
// later by spread.
func parseInput(arg string) (placement, error) {
	i := strings.LastIndexByte(arg, '@')
	if i < 0 {
		return placement{path: arg}, nil
	}
	parts := strings.Split(arg[i+1:], ",")
	if len(parts) != 3 || i == 0 {
		return placement{}, fmt.Errorf("%w: %q", errBadPosition, arg)
	}
	var xyz [3]float64
	for k, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return placement{}, fmt.Errorf("%w: %q: %w", errBadPosition, arg, err)
		}
		xyz[k] = v
	}
	pos := spatial.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	if !pos.IsFinite() {
		return placement{}, fmt.Errorf("%w: %q", errBadPosition, arg)
	}
	return placement{path: arg[:i], pos: pos, placed: true}, nil
}

// spread puts unplaced inputs on a circle of radius r around the origin,
// starting straight ahead (+Z) and turning towards the right ear (+X).
func spread(ps []placement, r float64) {
	var free []int
	for i, p := range ps {
		if !p.placed {
			free = append(free, i)
		}
	}
	for k, i := range free {
		az := 2 * math.Pi * float64(k) / float64(len(free))
		ps[i].pos = spatial.Vec3{X: r * math.Sin(az), Z: r * math.Cos(az)}
		ps[i].placed = true
	}
}
