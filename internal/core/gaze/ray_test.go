package gaze

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/stereoview/internal/core/physics"
)

func TestFixedScreenCenterRay(t *testing.T) {
	r, ok := FixedScreenCenterRay{}.Ray(Pose{})
	require.True(t, ok)
	assert.Equal(t, physics.SpaceScreen, r.Space)
	assert.Equal(t, 0.5, r.Origin.X)
	assert.Equal(t, 0.5, r.Origin.Y)
}

func TestHeadPoseRay(t *testing.T) {
	h := math.Sqrt2 / 2
	pose := Pose{
		Position:    physics.Vec3{Y: 1.6},
		Orientation: physics.Quat{Y: h, W: h}, // turned 90 degrees left
		Valid:       true,
	}
	r, ok := HeadPoseRay{}.Ray(pose)
	require.True(t, ok)
	assert.Equal(t, physics.SpaceWorld, r.Space)
	assert.Equal(t, 1.6, r.Origin.Y)
	assert.InDelta(t, -1, r.Direction.X, 1e-9)
	assert.InDelta(t, 0, r.Direction.Z, 1e-9)

	_, ok = HeadPoseRay{}.Ray(Pose{Valid: true})
	assert.False(t, ok, "zero quaternion")

	_, ok = HeadPoseRay{}.Ray(Pose{Orientation: physics.IdentityQuat})
	assert.False(t, ok, "pose not valid")
}
