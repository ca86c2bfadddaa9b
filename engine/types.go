// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/ik5/audspace/spatial"
)

// SourceID identifies a source for its whole life.
type SourceID = uuid.UUID

// BusID identifies a mixer bus. PrimaryBus always exists.
type BusID uint32

const PrimaryBus BusID = 0

// Status is the playback state of a source.
type Status int32

const (
	Stopped Status = iota
	Playing
	Paused
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// RendererKind picks how a positional source reaches the two output channels.
type RendererKind int

const (
	// RendererDefault follows the context-wide choice.
	RendererDefault RendererKind = iota
	RendererPanning
	RendererHRTF
)

func (k RendererKind) String() string {
	switch k {
	case RendererDefault:
		return "default"
	case RendererPanning:
		return "panning"
	case RendererHRTF:
		return "hrtf"
	default:
		return fmt.Sprintf("RendererKind(%d)", int(k))
	}
}

// ParseRendererKind accepts the names printed by String.
func ParseRendererKind(s string) (RendererKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "default", "":
		return RendererDefault, nil
	case "panning", "pan":
		return RendererPanning, nil
	case "hrtf":
		return RendererHRTF, nil
	}
	return 0, fmt.Errorf("%w: renderer %q", ErrInvalidParam, s)
}

// SpatialParams places a source in the world.
type SpatialParams struct {
	Position spatial.Vec3
	Rolloff  spatial.Rolloff
}

func (p SpatialParams) validate() error {
	r := p.Rolloff
	if !p.Position.IsFinite() {
		return fmt.Errorf("%w: position %v", ErrInvalidParam, p.Position)
	}
	if !(r.Radius > 0) || !(r.Factor >= 0) || !(r.MaxDistance >= 0) ||
		math.IsInf(r.Radius, 0) || math.IsInf(r.Factor, 0) {
		return fmt.Errorf("%w: rolloff %+v", ErrInvalidParam, r)
	}
	return nil
}

// SourceState is the control-side view of a source, refreshed after every
// render tick.
type SourceState struct {
	ID       SourceID
	Status   Status
	Position int64 // frames into the material
	Length   int64 // frames, -1 when unknown
	Bus      BusID
}

// EventKind classifies an Event.
type EventKind int

const (
	EventStopped EventKind = iota + 1
	EventUnderrun
	EventError
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventStopped:
		return "stopped"
	case EventUnderrun:
		return "underrun"
	case EventError:
		return "error"
	case EventRemoved:
		return "removed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event reports something the render side did on its own: a source reaching
// its end, starving or failing to decode.
type Event struct {
	Kind   EventKind
	Source SourceID
	Err    error
}
