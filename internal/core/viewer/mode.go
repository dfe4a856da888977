package viewer

import "fmt"

// Mode is the active viewer mode.
type Mode string

const (
	// ModeStart shows only the mode buttons; nothing is rendered.
	ModeStart Mode = "start"
	// ModeImages shows side-by-side stereo photographs.
	ModeImages Mode = "images"
	// ModeVRWorld shows the procedural low-poly world.
	ModeVRWorld Mode = "vr-world"
)

// Modes lists every known mode.
var Modes = []Mode{ModeStart, ModeImages, ModeVRWorld}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Built-in UI targets. Each id doubles as the name of its action.
const (
	TargetModeImages  = "mode-images"
	TargetModeVRWorld = "mode-vr-world"
	TargetPrevImage   = "prev-image"
	TargetNextImage   = "next-image"
	TargetToggleVR    = "toggle-vr-mode"
)

var actions = map[string]struct{}{
	TargetModeImages:  {},
	TargetModeVRWorld: {},
	TargetPrevImage:   {},
	TargetNextImage:   {},
	TargetToggleVR:    {},
}

// imageControl reports whether id belongs to the image controls, which are
// only interactive in images mode.
func imageControl(action string) bool {
	return action == TargetPrevImage || action == TargetNextImage
}
