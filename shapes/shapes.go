// Package shapes provides analytic initial conditions: signed-distance
// functions, solid classifiers and the scenes built from them.
package shapes

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/grid"
	"github.com/pthm-cable/froth/levelset"
)

// SDF returns the signed distance from p to a surface, negative inside.
type SDF func(p r3.Vec) float64

// Sphere is a ball of the given radius.
func Sphere(center r3.Vec, radius float64) SDF {
	return func(p r3.Vec) float64 {
		return r3.Norm(r3.Sub(p, center)) - radius
	}
}

// Box is the axis-aligned box [lo, hi].
func Box(lo, hi r3.Vec) SDF {
	center := r3.Scale(0.5, r3.Add(lo, hi))
	half := r3.Scale(0.5, r3.Sub(hi, lo))
	return func(p r3.Vec) float64 {
		q := r3.Sub(absVec(r3.Sub(p, center)), half)
		outside := r3.Norm(r3.Vec{X: math.Max(q.X, 0), Y: math.Max(q.Y, 0), Z: math.Max(q.Z, 0)})
		inside := math.Min(math.Max(q.X, math.Max(q.Y, q.Z)), 0)
		return outside + inside
	}
}

// Below is the half space y <= height.
func Below(height float64) SDF {
	return func(p r3.Vec) float64 { return p.Y - height }
}

// Union is the pointwise minimum of its operands.
func Union(sdfs ...SDF) SDF {
	return func(p r3.Vec) float64 {
		d := math.Inf(1)
		for _, f := range sdfs {
			d = math.Min(d, f(p))
		}
		return d
	}
}

// Noisy perturbs base with 3D simplex noise sampled at p*scale.
func Noisy(base SDF, amplitude, scale float64, seed int64) SDF {
	noise := opensimplex.New(seed)
	return func(p r3.Vec) float64 {
		return base(p) + amplitude*noise.Eval3(p.X*scale, p.Y*scale, p.Z*scale)
	}
}

// Provider adapts an SDF and a solid mask to levelset.Shape. Cell (i,j,k) is
// sampled at its center (i,j,k).
type Provider struct {
	SDF   SDF
	Solid func(c grid.Coord) bool
}

// Distance implements levelset.Shape.
func (p Provider) Distance(c grid.Coord) float32 {
	return float32(p.SDF(r3.Vec{X: float64(c.I), Y: float64(c.J), Z: float64(c.K)}))
}

// Classify implements levelset.Shape. Non-solid cells are left for the level
// set to classify by sign.
func (p Provider) Classify(c grid.Coord) levelset.CellType {
	if p.Solid != nil && p.Solid(c) {
		return levelset.Solid
	}
	return levelset.Empty
}

// BoxWalls marks a one-cell solid shell around a w×h×d grid. An open top
// leaves the j = h-1 layer free.
func BoxWalls(w, h, d int, openTop bool) func(grid.Coord) bool {
	return func(c grid.Coord) bool {
		if c.I == 0 || c.I == w-1 || c.K == 0 || c.K == d-1 || c.J == 0 {
			return true
		}
		return !openTop && c.J == h-1
	}
}

func absVec(v r3.Vec) r3.Vec {
	return r3.Vec{X: math.Abs(v.X), Y: math.Abs(v.Y), Z: math.Abs(v.Z)}
}
