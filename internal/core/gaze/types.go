// Package gaze implements hands-free dwell interaction: a gaze ray is hit
// tested against interactive targets every frame, the hovered target is
// highlighted, and holding the gaze on it for the dwell duration activates
// it as if it had been clicked.
package gaze

import (
	"time"

	"github.com/zeusync/stereoview/internal/core/physics"
)

// DefaultDwell is how long the gaze must rest on a target to activate it.
const DefaultDwell = 1500 * time.Millisecond

// TargetID identifies an interactive target. The empty id means "none".
type TargetID string

// Target is one gaze-interactive region. Targets are owned by the mode
// manager; the controller only keeps the current list.
type Target struct {
	ID     TargetID
	Region physics.Region
}

// GazeState is the controller's observable state.
type GazeState struct {
	Hovered    TargetID
	DwellStart time.Time
	// Armed mirrors the gaze pointer indicator: lit while the dwell timer
	// runs or a manual press is held.
	Armed bool
}

// State names the controller state machine position.
type State uint8

const (
	StateIdle State = iota
	StateHovering
	StateDwelling
	StateArmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHovering:
		return "hovering"
	case StateDwelling:
		return "dwelling"
	case StateArmed:
		return "armed"
	default:
		return "unknown"
	}
}

// HoverChange describes the effect of one tick on the hovered target.
type HoverChange struct {
	Previous TargetID
	Current  TargetID
}

// Changed reports whether the hovered target differs after the tick.
func (h HoverChange) Changed() bool { return h.Previous != h.Current }
