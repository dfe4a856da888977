// Package world lays out the decorative low-poly mountains of the vr-world
// scene. It produces a scene description only; the page builds the meshes.
package world

import (
	"math"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/stereoview/internal/core/physics"
)

// Kind is the mountain primitive.
type Kind string

const (
	KindCube    Kind = "cube"
	KindPyramid Kind = "pyramid"
)

// Mountain is one placed primitive. Position is the center of its bounding
// box, so the base rests on the ground (Y = Height/2). Pyramids are
// four-sided cones of radius Width/2.
type Mountain struct {
	Kind      Kind         `json:"kind"`
	Height    float64      `json:"height"`
	Width     float64      `json:"width"`
	Depth     float64      `json:"depth"`
	Position  physics.Vec3 `json:"position"`
	RotationY float64      `json:"rotation_y"`
	Color     Color        `json:"color"`
}

// Color is linear RGB in [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Params controls placement.
type Params struct {
	Count     int     `yaml:"count"`
	MinHeight float64 `yaml:"min_height"`
	MaxHeight float64 `yaml:"max_height"`
	// Spread is the side of the square, centered on the origin, that
	// mountains are scattered over.
	Spread float64 `yaml:"spread"`
	// Clearance keeps a square of half-size Clearance around the origin free.
	Clearance float64 `yaml:"clearance"`
}

// DefaultParams is the stock scene: fifty mountains between 5 and
// 50 units tall over an 800x800 area, none within 50 units of the origin.
func DefaultParams() Params {
	return Params{
		Count:     50,
		MinHeight: 5,
		MaxHeight: 50,
		Spread:    800,
		Clearance: 50,
	}
}

// Camera is the initial viewpoint.
type Camera struct {
	Position physics.Vec3 `json:"position"`
	LookAt   physics.Vec3 `json:"look_at"`
	FOV      float64      `json:"fov"`
	// YawPerFrame is added to the camera's Y rotation, in radians, on every
	// rendered frame while the vr-world is shown.
	YawPerFrame float64 `json:"yaw_per_frame"`
}

// cameraYawPerFrame is the slow idle spin of the world camera.
const cameraYawPerFrame = 0.001

// Scene is everything the page needs to build the vr-world.
type Scene struct {
	Seed      uint64     `json:"seed"`
	Sky       uint32     `json:"sky"`
	Ground    uint32     `json:"ground"`
	GroundLen float64    `json:"ground_size"`
	Camera    Camera     `json:"camera"`
	Mountains []Mountain `json:"mountains"`
}

const (
	skyColor    = 0x87ceeb
	groundColor = 0x6b8e23
	groundSize  = 1000
)

// maxRerolls bounds the clearance rejection loop. With the default
// parameters a reroll is needed for about 1.5% of draws.
const maxRerolls = 1000

// SeedFrom derives a placement seed from a free-form string.
func SeedFrom(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Generate places p.Count mountains. The same params and seed always give
// the same layout.
func Generate(p Params, seed uint64) []Mountain {
	if p.Count <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	half := p.Spread / 2

	out := make([]Mountain, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		kind := KindPyramid
		if rng.Float64() > 0.5 {
			kind = KindCube
		}
		height := p.MinHeight + rng.Float64()*(p.MaxHeight-p.MinHeight)
		width := height * (0.5 + rng.Float64()*0.5)
		depth := height * (0.5 + rng.Float64()*0.5)

		color := Color{
			R: rng.Float64()*0.2 + 0.3,
			G: rng.Float64()*0.1 + 0.2,
			B: rng.Float64()*0.1 + 0.2,
		}

		var x, z float64
		for try := 0; ; try++ {
			x = (rng.Float64() - 0.5) * p.Spread
			z = (rng.Float64() - 0.5) * p.Spread
			if math.Abs(x) >= p.Clearance || math.Abs(z) >= p.Clearance {
				break
			}
			if try >= maxRerolls || p.Clearance >= half {
				// Clearance covers the whole area; push to the edge.
				x = math.Copysign(half, x)
				break
			}
		}

		out = append(out, Mountain{
			Kind:      kind,
			Height:    height,
			Width:     width,
			Depth:     depth,
			Position:  physics.Vec3{X: x, Y: height / 2, Z: z},
			RotationY: rng.Float64() * 2 * math.Pi,
			Color:     color,
		})
	}
	return out
}

// NewScene builds the full vr-world description.
func NewScene(p Params, seed uint64) Scene {
	return Scene{
		Seed:      seed,
		Sky:       skyColor,
		Ground:    groundColor,
		GroundLen: groundSize,
		Camera: Camera{
			Position:    physics.Vec3{Y: 10},
			LookAt:      physics.Vec3{Z: -50},
			FOV:         75,
			YawPerFrame: cameraYawPerFrame,
		},
		Mountains: Generate(p, seed),
	}
}
