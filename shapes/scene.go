package shapes

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SceneOptions sizes a named scene. Heights and radii are fractions of the
// grid extent.
type SceneOptions struct {
	Kind           string
	FillHeight     float64
	DropRadius     float64
	NoiseAmplitude float64 // cells
	NoiseScale     float64
	Seed           int64
}

// Scene builds the named initial condition for a w×h×d grid.
//
//	dam   a fluid column against the -x wall
//	drop  a sphere falling into a shallow pool
//	pool  a resting pool with a noise-perturbed surface
func Scene(w, h, d int, opts SceneOptions) (Provider, error) {
	walls := BoxWalls(w, h, d, true)
	fill := opts.FillHeight * float64(h)

	switch opts.Kind {
	case "dam":
		return Provider{
			SDF:   Box(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, r3.Vec{X: 0.4 * float64(w), Y: fill, Z: float64(d) - 1.5}),
			Solid: walls,
		}, nil
	case "drop":
		r := opts.DropRadius * float64(min(w, h, d))
		center := r3.Vec{X: float64(w-1) / 2, Y: math.Max(fill+2*r, 0.7*float64(h)), Z: float64(d-1) / 2}
		return Provider{
			SDF:   Union(Below(fill), Sphere(center, r)),
			Solid: walls,
		}, nil
	case "pool":
		return Provider{
			SDF:   Noisy(Below(fill), opts.NoiseAmplitude, opts.NoiseScale, opts.Seed),
			Solid: walls,
		}, nil
	default:
		return Provider{}, fmt.Errorf("unknown scene %q", opts.Kind)
	}
}
