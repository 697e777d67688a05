package levelset

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/grid"
)

// sphereShape is fluid inside a sphere, with an optional solid floor layer.
type sphereShape struct {
	center r3.Vec
	radius float64
	floor  bool
}

func (s sphereShape) Distance(c grid.Coord) float32 {
	return float32(r3.Norm(r3.Sub(position(c), s.center)) - s.radius)
}

func (s sphereShape) Classify(c grid.Coord) CellType {
	if s.floor && c.J == 0 {
		return Solid
	}
	return Empty
}

func newSphere(n int, radius float64) *LevelSet {
	mid := float64(n-1) / 2
	return New(n, n, n, sphereShape{center: r3.Vec{X: mid, Y: mid, Z: mid}, radius: radius}, DefaultBound)
}

func TestNewClassifiesBySignWithSolidOverride(t *testing.T) {
	ls := New(9, 9, 9, sphereShape{center: r3.Vec{X: 4, Y: 4, Z: 4}, radius: 3, floor: true}, DefaultBound)

	tests := []struct {
		c    grid.Coord
		want CellType
	}{
		{grid.Coord{I: 4, J: 4, K: 4}, Fluid},
		{grid.Coord{I: 4, J: 7, K: 4}, Fluid}, // exactly on the surface counts as inside
		{grid.Coord{I: 0, J: 8, K: 0}, Empty},
		{grid.Coord{I: 4, J: 0, K: 4}, Solid},
		{grid.Coord{I: 0, J: 0, K: 0}, Solid},
	}
	for _, tt := range tests {
		if got := ls.Cells.Get(tt.c); got != tt.want {
			t.Errorf("cell %v = %v, want %v", tt.c, got, tt.want)
		}
	}
	if ls.VolumeError() != 0 {
		t.Errorf("VolumeError() = %v right after construction, want 0", ls.VolumeError())
	}
}

func TestMergeSolidDominates(t *testing.T) {
	types := []CellType{Empty, Fluid, Solid}
	for _, a := range types {
		for _, b := range types {
			la := NewEmpty(1, 1, 1, DefaultBound)
			lb := NewEmpty(1, 1, 1, DefaultBound)
			la.Cells.Data[0], la.Phi.Data[0] = a, 2
			lb.Cells.Data[0], lb.Phi.Data[0] = b, -1

			if err := la.Merge(lb); err != nil {
				t.Fatalf("Merge: %v", err)
			}

			want := Empty
			switch {
			case a == Solid || b == Solid:
				want = Solid
			case a == Fluid || b == Fluid:
				want = Fluid
			}
			if got := la.Cells.Data[0]; got != want {
				t.Errorf("merge(%v, %v) = %v, want %v", a, b, got, want)
			}
			if want == Solid && la.Phi.Data[0] != SolidDistance {
				t.Errorf("merge(%v, %v) distance = %v, want sentinel", a, b, la.Phi.Data[0])
			}
			if want != Solid && la.Phi.Data[0] != -1 {
				t.Errorf("merge(%v, %v) distance = %v, want min -1", a, b, la.Phi.Data[0])
			}
		}
	}
}

func TestMergeDimensionMismatch(t *testing.T) {
	a := NewEmpty(4, 4, 4, DefaultBound)
	b := NewEmpty(4, 5, 4, DefaultBound)
	before := a.Phi.Clone()

	err := a.Merge(b)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Merge error = %v, want ErrDimensionMismatch", err)
	}
	for i := range before.Data {
		if a.Phi.Data[i] != before.Data[i] {
			t.Fatal("failed merge modified the receiver")
		}
	}
}

func TestMergeTwoSpheres(t *testing.T) {
	a := New(16, 16, 16, sphereShape{center: r3.Vec{X: 4, Y: 8, Z: 8}, radius: 3}, DefaultBound)
	b := New(16, 16, 16, sphereShape{center: r3.Vec{X: 11, Y: 8, Z: 8}, radius: 3}, DefaultBound)
	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for _, c := range []grid.Coord{{I: 4, J: 8, K: 8}, {I: 11, J: 8, K: 8}} {
		if a.Cells.Get(c) != Fluid {
			t.Errorf("cell %v = %v after union, want fluid", c, a.Cells.Get(c))
		}
	}
	if a.Cells.Get(grid.Coord{I: 7, J: 2, K: 8}) != Empty {
		t.Error("cell outside both spheres became non-empty")
	}
}

func TestReinitializeBoundsAndSign(t *testing.T) {
	ls := newSphere(17, 4)
	// Distort the field: same zero set, wrong slope.
	for i := range ls.Phi.Data {
		ls.Phi.Data[i] *= 3
	}
	before := ls.Cells.Clone()

	ls.Reinitialize()

	for i, v := range ls.Phi.Data {
		if abs32(v) > ls.Bound {
			t.Fatalf("cell %d: |phi| = %v exceeds bound %v", i, v, ls.Bound)
		}
		if ls.Cells.Data[i] != before.Data[i] {
			t.Fatalf("cell %d changed class %v -> %v", i, before.Data[i], ls.Cells.Data[i])
		}
	}
}

func TestReinitializeRecoversDistance(t *testing.T) {
	const n = 17
	ls := newSphere(n, 4)
	for i := range ls.Phi.Data {
		ls.Phi.Data[i] *= 2.5
	}
	ls.Reinitialize()

	center := r3.Vec{X: 8, Y: 8, Z: 8}
	for idx, v := range ls.Phi.Data {
		c := ls.Phi.CoordOf(idx)
		want := r3.Norm(r3.Sub(position(c), center)) - 4
		if math.Abs(want) > 3 {
			continue
		}
		if diff := math.Abs(float64(v) - want); diff > 0.75 {
			t.Errorf("cell %v: phi = %.3f, true distance %.3f", c, v, want)
		}
	}
}

func TestReinitializeFinalizesInDistanceOrder(t *testing.T) {
	ls := newSphere(15, 3.5)
	var pops []float32
	ls.trace = func(d float32) { pops = append(pops, d) }

	ls.Reinitialize()

	if len(pops) == 0 {
		t.Fatal("fast marching finalized no cells")
	}
	for i := 1; i < len(pops); i++ {
		if pops[i] < pops[i-1] {
			t.Fatalf("pop %d: distance %v after %v", i, pops[i], pops[i-1])
		}
	}
}

func TestReinitializeLeavesSolidCells(t *testing.T) {
	ls := New(9, 9, 9, sphereShape{center: r3.Vec{X: 4, Y: 2, Z: 4}, radius: 3, floor: true}, DefaultBound)
	ls.Reinitialize()
	for i := 0; i < 9; i++ {
		if got := ls.Cells.Get(grid.Coord{I: i, J: 0, K: 4}); got != Solid {
			t.Fatalf("floor cell (%d,0,4) = %v after reinitialize", i, got)
		}
	}
}

func TestVolumeErrorTracksFluidLoss(t *testing.T) {
	ls := newSphere(11, 3)
	target := ls.TargetVolume
	for i := range ls.Phi.Data {
		ls.Phi.Data[i] += 1
	}
	ls.Reclassify()
	if ls.CurrentVolume >= target {
		t.Fatalf("volume %v did not shrink below target %v", ls.CurrentVolume, target)
	}
	if ls.VolumeError() <= 0 {
		t.Errorf("VolumeError() = %v, want positive", ls.VolumeError())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ls := newSphere(9, 2)
	c := ls.Clone()
	c.Phi.Data[0] = 42
	c.Reinitialize()
	if ls.Phi.Data[0] == 42 {
		t.Error("clone shares distance storage")
	}
}
