// Package levelset tracks the free surface as a signed-distance field.
//
// Distances are measured in grid cells. Negative values lie inside the fluid,
// and zero counts as inside. SOLID cells are authoritative: they keep their
// classification whatever the sign of their distance.
package levelset

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/grid"
)

// CellType classifies a grid cell.
type CellType int32

const (
	Empty CellType = iota
	Fluid
	Solid
)

func (t CellType) String() string {
	switch t {
	case Empty:
		return "empty"
	case Fluid:
		return "fluid"
	case Solid:
		return "solid"
	}
	return fmt.Sprintf("CellType(%d)", int32(t))
}

// SolidDistance is written into cells that a merge turns SOLID.
const SolidDistance float32 = 1e6

// DefaultBound is the distance clamp used when none is configured.
const DefaultBound float32 = 5

// ErrDimensionMismatch is returned when combining level sets of different sizes.
var ErrDimensionMismatch = errors.New("levelset: dimension mismatch")

// Shape supplies initial conditions: an analytic distance and a cell classifier.
// Classify only needs to report Solid; other results are replaced by the
// sign of Distance.
type Shape interface {
	Distance(c grid.Coord) float32
	Classify(c grid.Coord) CellType
}

// LevelSet owns the distance field, the cell classification and the closest
// surface point recorded for each cell during reinitialization.
type LevelSet struct {
	Phi     *grid.Scalar
	Cells   *grid.Grid[CellType]
	Closest *grid.Grid[r3.Vec]

	// Bound clamps |Phi| after every reinitialization.
	Bound float32

	TargetVolume  float32
	CurrentVolume float32

	old  *grid.Scalar
	heap *MinHeap

	// trace observes each finalized distance during fast marching.
	trace func(dist float32)
}

// NewEmpty allocates a level set with every cell EMPTY at distance Bound.
func NewEmpty(w, h, d int, bound float32) *LevelSet {
	if bound <= 0 {
		bound = DefaultBound
	}
	ls := &LevelSet{
		Phi:     grid.NewScalar(w, h, d),
		Cells:   grid.New[CellType](w, h, d),
		Closest: grid.New[r3.Vec](w, h, d),
		Bound:   bound,
		old:     grid.NewScalar(w, h, d),
	}
	ls.Phi.Fill(bound)
	ls.heap = NewMinHeap(w*h*d, ls.key)
	return ls
}

// New evaluates shape over every cell and records the resulting fluid fraction
// as the volume target.
func New(w, h, d int, shape Shape, bound float32) *LevelSet {
	ls := NewEmpty(w, h, d, bound)
	ls.Phi.SetForEach(shape.Distance)
	ls.Cells.SetForEach(func(c grid.Coord) CellType {
		if shape.Classify(c) == Solid {
			return Solid
		}
		return classify(ls.Phi.Get(c))
	})
	ls.CurrentVolume = ls.fluidFraction()
	ls.TargetVolume = ls.CurrentVolume
	return ls
}

func (ls *LevelSet) key(idx int32) float32 {
	return abs32(ls.Phi.Data[idx])
}

// Dims returns the grid dimensions.
func (ls *LevelSet) Dims() (w, h, d int) {
	return ls.Phi.W, ls.Phi.H, ls.Phi.D
}

// Merge replaces ls with the pointwise union of ls and other.
func (ls *LevelSet) Merge(other *LevelSet) error {
	w, h, d := ls.Dims()
	if !other.Phi.SameSize(w, h, d) {
		ow, oh, od := other.Dims()
		return fmt.Errorf("%w: %dx%dx%d vs %dx%dx%d", ErrDimensionMismatch, w, h, d, ow, oh, od)
	}

	for i := range ls.Phi.Data {
		a, b := ls.Cells.Data[i], other.Cells.Data[i]
		switch {
		case a == Solid || b == Solid:
			ls.Cells.Data[i] = Solid
			ls.Phi.Data[i] = SolidDistance
			continue
		case a == Fluid || b == Fluid:
			ls.Cells.Data[i] = Fluid
		default:
			ls.Cells.Data[i] = Empty
		}
		if other.Phi.Data[i] < ls.Phi.Data[i] {
			ls.Phi.Data[i] = other.Phi.Data[i]
		}
	}

	ls.CurrentVolume = ls.fluidFraction()
	ls.TargetVolume = ls.CurrentVolume
	return nil
}

// Reclassify derives FLUID/EMPTY from the distance sign, leaving SOLID cells
// alone, and refreshes the current fluid fraction.
func (ls *LevelSet) Reclassify() {
	for i, phi := range ls.Phi.Data {
		if ls.Cells.Data[i] != Solid {
			ls.Cells.Data[i] = classify(phi)
		}
	}
	ls.CurrentVolume = ls.fluidFraction()
}

// VolumeError returns target minus current fluid fraction.
func (ls *LevelSet) VolumeError() float32 {
	return ls.TargetVolume - ls.CurrentVolume
}

// Clone returns a deep copy. The copy has its own heap and scratch buffer.
func (ls *LevelSet) Clone() *LevelSet {
	c := &LevelSet{
		Phi:           ls.Phi.Clone(),
		Cells:         ls.Cells.Clone(),
		Closest:       ls.Closest.Clone(),
		Bound:         ls.Bound,
		TargetVolume:  ls.TargetVolume,
		CurrentVolume: ls.CurrentVolume,
		old:           grid.NewScalar(ls.Phi.W, ls.Phi.H, ls.Phi.D),
	}
	c.heap = NewMinHeap(c.Phi.Len(), c.key)
	return c
}

// CopyFrom overwrites ls with src. Dimensions must match.
func (ls *LevelSet) CopyFrom(src *LevelSet) {
	ls.Phi.CopyFrom(src.Phi)
	ls.Cells.CopyFrom(src.Cells)
	ls.Closest.CopyFrom(src.Closest)
	ls.Bound = src.Bound
	ls.TargetVolume = src.TargetVolume
	ls.CurrentVolume = src.CurrentVolume
}

// IsFluid reports whether c is a FLUID cell. Out-of-range cells are not fluid.
func (ls *LevelSet) IsFluid(c grid.Coord) bool {
	return ls.Cells.IsValid(c) && ls.Cells.Get(c) == Fluid
}

// fluidFraction is FLUID cells over all non-SOLID cells.
func (ls *LevelSet) fluidFraction() float32 {
	var fluid, open int
	for _, t := range ls.Cells.Data {
		switch t {
		case Fluid:
			fluid++
			open++
		case Empty:
			open++
		}
	}
	if open == 0 {
		return 0
	}
	return float32(fluid) / float32(open)
}

func classify(phi float32) CellType {
	if inside(phi) {
		return Fluid
	}
	return Empty
}

func inside(phi float32) bool { return phi <= 0 }

func sign(phi float32) float32 {
	if inside(phi) {
		return -1
	}
	return 1
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
