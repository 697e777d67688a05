// Package velocity holds the MAC-staggered velocity field and semi-Lagrangian advection.
package velocity

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/grid"
)

// Component selects one staggered velocity grid.
type Component int

const (
	X Component = iota
	Y
	Z
)

// faceOffset is the position of face (i,j,k) relative to cell center (i,j,k).
// Each component sits half a cell back along its own axis.
var faceOffset = [3]r3.Vec{
	{X: -0.5},
	{Y: -0.5},
	{Z: -0.5},
}

// Field stores velocity on cell faces: U is (w+1)×h×d, V is w×(h+1)×d and
// W is w×h×(d+1). Positions are in cell units; velocities in world units per
// second, with Dx world units per cell.
type Field struct {
	U, V, W *grid.Scalar
	Dx      float64
}

// NewField allocates a zero velocity field for a w×h×d cell grid.
func NewField(w, h, d int, dx float64) *Field {
	if dx <= 0 {
		dx = 1
	}
	return &Field{
		U:  grid.NewScalar(w+1, h, d),
		V:  grid.NewScalar(w, h+1, d),
		W:  grid.NewScalar(w, h, d+1),
		Dx: dx,
	}
}

// Dims returns the cell grid dimensions.
func (f *Field) Dims() (w, h, d int) {
	return f.V.W, f.U.H, f.U.D
}

// Component returns the grid backing comp.
func (f *Field) Component(comp Component) *grid.Scalar {
	switch comp {
	case X:
		return f.U
	case Y:
		return f.V
	default:
		return f.W
	}
}

// FacePosition returns the cell-space position of face c of comp.
func FacePosition(comp Component, c grid.Coord) r3.Vec {
	return r3.Add(cellPosition(c), faceOffset[comp])
}

// SampleComponent interpolates comp at a cell-space position.
func (f *Field) SampleComponent(comp Component, p r3.Vec) float32 {
	return grid.Lerp(f.Component(comp), r3.Sub(p, faceOffset[comp]))
}

// Lerp reconstructs the full velocity at a cell-space position.
func (f *Field) Lerp(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: float64(f.SampleComponent(X, p)),
		Y: float64(f.SampleComponent(Y, p)),
		Z: float64(f.SampleComponent(Z, p)),
	}
}

// Cell averages the six faces of cell c.
func (f *Field) Cell(c grid.Coord) r3.Vec {
	return r3.Vec{
		X: 0.5 * float64(f.U.Get(c)+f.U.Get(grid.Coord{I: c.I + 1, J: c.J, K: c.K})),
		Y: 0.5 * float64(f.V.Get(c)+f.V.Get(grid.Coord{I: c.I, J: c.J + 1, K: c.K})),
		Z: 0.5 * float64(f.W.Get(c)+f.W.Get(grid.Coord{I: c.I, J: c.J, K: c.K + 1})),
	}
}

// Divergence returns the discrete divergence of cell c from its face differences.
func (f *Field) Divergence(c grid.Coord) float32 {
	du := f.U.Get(grid.Coord{I: c.I + 1, J: c.J, K: c.K}) - f.U.Get(c)
	dv := f.V.Get(grid.Coord{I: c.I, J: c.J + 1, K: c.K}) - f.V.Get(c)
	dw := f.W.Get(grid.Coord{I: c.I, J: c.J, K: c.K + 1}) - f.W.Get(c)
	return (du + dv + dw) / float32(f.Dx)
}

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	return &Field{U: f.U.Clone(), V: f.V.Clone(), W: f.W.Clone(), Dx: f.Dx}
}

// CopyFrom overwrites f with src. Dimensions must match.
func (f *Field) CopyFrom(src *Field) {
	f.U.CopyFrom(src.U)
	f.V.CopyFrom(src.V)
	f.W.CopyFrom(src.W)
	f.Dx = src.Dx
}

func cellPosition(c grid.Coord) r3.Vec {
	return r3.Vec{X: float64(c.I), Y: float64(c.J), Z: float64(c.K)}
}
