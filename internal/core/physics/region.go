package physics

import "math"

var (
	_ Region = ScreenRect{}
	_ Region = Box{}
	_ Region = Sphere{}
)

// ScreenRect is an axis-aligned rectangle in normalized screen space
// ([0,1] on both axes, origin at the top-left). Edges are inclusive.
type ScreenRect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"w" yaml:"w"`
	Height float64 `json:"h" yaml:"h"`
}

// Contains reports whether the normalized point (x, y) lies in r.
func (r ScreenRect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersect hits at distance 0 when the screen ray's point is inside.
func (r ScreenRect) Intersect(ray Ray) (float64, bool) {
	if ray.Space != SpaceScreen {
		return 0, false
	}
	return 0, r.Contains(ray.Origin.X, ray.Origin.Y)
}

// Box is an axis-aligned box in world space.
type Box struct {
	Min Vec3 `json:"min" yaml:"min"`
	Max Vec3 `json:"max" yaml:"max"`
}

const parallelEps = 1e-12

// Intersect runs the slab test. A ray starting inside the box hits at 0.
func (b Box) Intersect(ray Ray) (float64, bool) {
	if ray.Space != SpaceWorld {
		return 0, false
	}
	tmin, tmax := math.Inf(-1), math.Inf(1)

	o := [3]float64{ray.Origin.X, ray.Origin.Y, ray.Origin.Z}
	d := [3]float64{ray.Direction.X, ray.Direction.Y, ray.Direction.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}

	for axis := 0; axis < 3; axis++ {
		if d[axis] > -parallelEps && d[axis] < parallelEps {
			if o[axis] < lo[axis] || o[axis] > hi[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[axis]
		t1 := (lo[axis] - o[axis]) * inv
		t2 := (hi[axis] - o[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax < 0 || tmin > tmax {
		return 0, false
	}
	if tmin < 0 {
		return 0, true
	}
	return tmin, true
}

// Sphere is a world-space sphere proxy.
type Sphere struct {
	Center Vec3    `json:"center" yaml:"center"`
	Radius float64 `json:"radius" yaml:"radius"`
}

// Intersect returns the nearest non-negative hit. Rays starting inside hit at 0.
func (s Sphere) Intersect(ray Ray) (float64, bool) {
	if ray.Space != SpaceWorld || s.Radius <= 0 {
		return 0, false
	}
	oc := ray.Origin.Sub(s.Center)
	a := ray.Direction.Dot(ray.Direction)
	if a == 0 {
		return 0, false
	}
	b := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius
	if c <= 0 {
		return 0, true
	}
	disc := b*b - a*c
	if disc < 0 {
		return 0, false
	}
	t := (-b - math.Sqrt(disc)) / a
	if t < 0 {
		return 0, false
	}
	return t, true
}
