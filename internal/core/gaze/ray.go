package gaze

import "github.com/zeusync/stereoview/internal/core/physics"

// Pose is a head pose as reported by the XR runtime.
type Pose struct {
	Position    physics.Vec3
	Orientation physics.Quat
	Valid       bool
}

// RayProvider turns the current pose into the gaze ray. The controller
// logic is the same regardless of where the ray comes from.
type RayProvider interface {
	Ray(p Pose) (physics.Ray, bool)
}

var (
	_ RayProvider = FixedScreenCenterRay{}
	_ RayProvider = HeadPoseRay{}
)

// FixedScreenCenterRay is the stereo-split fallback: the gaze is always the
// center of the screen, whatever the pose.
type FixedScreenCenterRay struct{}

func (FixedScreenCenterRay) Ray(Pose) (physics.Ray, bool) {
	return physics.ScreenRay(0.5, 0.5), true
}

// HeadPoseRay casts from the head position along the head's forward (-Z) axis.
type HeadPoseRay struct{}

var forward = physics.Vec3{Z: -1}

func (HeadPoseRay) Ray(p Pose) (physics.Ray, bool) {
	if !p.Valid || p.Orientation.Norm() == 0 {
		return physics.Ray{}, false
	}
	dir := p.Orientation.Rotate(forward)
	if dir.IsZero() {
		return physics.Ray{}, false
	}
	return physics.WorldRay(p.Position, dir), true
}
