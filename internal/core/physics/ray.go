package physics

import "math"

// Space tells which coordinate system a ray lives in.
type Space uint8

const (
	// SpaceScreen rays carry a normalized screen point in Origin.X/Origin.Y.
	SpaceScreen Space = iota
	// SpaceWorld rays are proper 3D rays.
	SpaceWorld
)

func (s Space) String() string {
	switch s {
	case SpaceScreen:
		return "screen"
	case SpaceWorld:
		return "world"
	default:
		return "unknown"
	}
}

// Ray is a gaze or pointer ray.
type Ray struct {
	Origin    Vec3
	Direction Vec3
	Space     Space
}

// ScreenRay builds a screen-space ray through the normalized point (x, y).
func ScreenRay(x, y float64) Ray {
	return Ray{
		Origin:    Vec3{X: x, Y: y},
		Direction: Vec3{Z: -1},
		Space:     SpaceScreen,
	}
}

// WorldRay builds a world-space ray. The direction is normalized.
func WorldRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize(), Space: SpaceWorld}
}

// At returns the point along the ray at parameter t.
func (r Ray) At(t float64) Vec3 { return r.Origin.Add(r.Direction.Scale(t)) }

// Region is anything a gaze ray can hit. Intersect reports the ray
// parameter of the hit; regions that do not apply to the ray's space
// report no hit.
type Region interface {
	Intersect(r Ray) (float64, bool)
}

// Raycast returns the index of the nearest region hit by r, or -1.
// Equal distances keep the earlier region, so screen regions (which all
// hit at 0) resolve to the first match in list order.
func Raycast(r Ray, regions []Region) (int, float64) {
	best, bestT := -1, math.Inf(1)
	for i, reg := range regions {
		if reg == nil {
			continue
		}
		t, ok := reg.Intersect(r)
		if !ok {
			continue
		}
		if t < bestT {
			best, bestT = i, t
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestT
}
