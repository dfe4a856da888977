package viewer

import (
	"fmt"

	"github.com/zeusync/stereoview/internal/core/physics"
)

// TargetSpec describes one interactive target as laid out by the page (2D
// buttons) or placed in the scene (3D proxies). Exactly one shape is set.
type TargetSpec struct {
	ID string `json:"id" yaml:"id"`
	// Action names the built-in action to run; defaults to ID.
	Action string              `json:"action,omitempty" yaml:"action,omitempty"`
	Rect   *physics.ScreenRect `json:"rect,omitempty" yaml:"rect,omitempty"`
	Box    *physics.Box        `json:"box,omitempty" yaml:"box,omitempty"`
	Sphere *physics.Sphere     `json:"sphere,omitempty" yaml:"sphere,omitempty"`
	// Modes restricts the target to the listed modes; empty means all.
	Modes []Mode `json:"modes,omitempty" yaml:"modes,omitempty"`
}

func (s TargetSpec) action() string {
	if s.Action != "" {
		return s.Action
	}
	return s.ID
}

// Region returns the hit region of the spec.
func (s TargetSpec) Region() physics.Region {
	switch {
	case s.Rect != nil:
		return *s.Rect
	case s.Box != nil:
		return *s.Box
	case s.Sphere != nil:
		return *s.Sphere
	default:
		return nil
	}
}

// Validate checks the spec is usable.
func (s TargetSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: target without id", ErrInvalidLayout)
	}
	shapes := 0
	for _, set := range []bool{s.Rect != nil, s.Box != nil, s.Sphere != nil} {
		if set {
			shapes++
		}
	}
	if shapes != 1 {
		return fmt.Errorf("%w: target %q must have exactly one shape, has %d", ErrInvalidLayout, s.ID, shapes)
	}
	if s.Rect != nil && (s.Rect.Width < 0 || s.Rect.Height < 0) {
		return fmt.Errorf("%w: target %q has a negative size", ErrInvalidLayout, s.ID)
	}
	if s.Sphere != nil && s.Sphere.Radius <= 0 {
		return fmt.Errorf("%w: target %q has a non-positive radius", ErrInvalidLayout, s.ID)
	}
	if _, ok := actions[s.action()]; !ok {
		return fmt.Errorf("%w: target %q: %w %q", ErrInvalidLayout, s.ID, ErrUnknownAction, s.action())
	}
	for _, m := range s.Modes {
		if _, err := ParseMode(string(m)); err != nil {
			return fmt.Errorf("%w: target %q: %w", ErrInvalidLayout, s.ID, err)
		}
	}
	return nil
}

func (s TargetSpec) activeIn(m Mode) bool {
	if imageControl(s.action()) && m != ModeImages {
		return false
	}
	if len(s.Modes) == 0 {
		return true
	}
	for _, allowed := range s.Modes {
		if allowed == m {
			return true
		}
	}
	return false
}

func rect(x, y, w, h float64) *physics.ScreenRect {
	return &physics.ScreenRect{X: x, Y: y, Width: w, Height: h}
}

// DefaultLayout is a centered button column used until the page reports
// its real button rectangles.
func DefaultLayout() []TargetSpec {
	return []TargetSpec{
		{ID: TargetModeImages, Rect: rect(0.35, 0.20, 0.30, 0.08)},
		{ID: TargetModeVRWorld, Rect: rect(0.35, 0.30, 0.30, 0.08)},
		{ID: TargetPrevImage, Rect: rect(0.20, 0.46, 0.28, 0.08), Modes: []Mode{ModeImages}},
		{ID: TargetNextImage, Rect: rect(0.52, 0.46, 0.28, 0.08), Modes: []Mode{ModeImages}},
		{ID: TargetToggleVR, Rect: rect(0.35, 0.60, 0.30, 0.08)},
	}
}
