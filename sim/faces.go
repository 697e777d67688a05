package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/grid"
	"github.com/pthm-cable/froth/levelset"
	"github.com/pthm-cable/froth/velocity"
)

// axis is the unit step from a face's negative-side cell to its positive-side cell.
var axis = [3]grid.Coord{{I: 1}, {J: 1}, {K: 1}}

// faceFunc computes a new face value from the classification of the two cells
// it separates. Cells outside the grid read as SOLID.
type faceFunc func(lo, hi grid.Coord, tlo, thi levelset.CellType, v float32) float32

// updateFaces rewrites every face of the listed components in parallel. Each
// face only reads and writes itself.
func (s *Simulation) updateFaces(f *velocity.Field, cells *grid.Grid[levelset.CellType], comps []velocity.Component, fn faceFunc) {
	for _, comp := range comps {
		g := f.Component(comp)
		a := axis[comp]
		s.pool.Run(g.D, func(k0, k1 int) {
			g.SetRange(k0, k1, func(c grid.Coord) float32 {
				lo := grid.Coord{I: c.I - a.I, J: c.J - a.J, K: c.K - a.K}
				return fn(lo, c, typeAt(cells, lo), typeAt(cells, c), g.Get(c))
			})
		})
	}
}

var allComponents = []velocity.Component{velocity.X, velocity.Y, velocity.Z}

func typeAt(cells *grid.Grid[levelset.CellType], c grid.Coord) levelset.CellType {
	if !cells.IsValid(c) {
		return levelset.Solid
	}
	return cells.Get(c)
}

func gravityVec(g float64) r3.Vec { return r3.Vec{Y: -g} }

// applyGravity accelerates the vertical faces that border fluid.
func (s *Simulation) applyGravity(f *velocity.Field, cells *grid.Grid[levelset.CellType], dt float64) {
	if s.opts.Gravity == 0 {
		return
	}
	dv := float32(s.opts.Gravity * dt)
	s.updateFaces(f, cells, []velocity.Component{velocity.Y}, func(_, _ grid.Coord, tlo, thi levelset.CellType, v float32) float32 {
		if tlo == levelset.Fluid || thi == levelset.Fluid {
			return v - dv
		}
		return v
	})
}

// enforceSolids zeroes every face touching a SOLID cell or the grid boundary.
func (s *Simulation) enforceSolids(f *velocity.Field, cells *grid.Grid[levelset.CellType]) {
	s.updateFaces(f, cells, allComponents, func(_, _ grid.Coord, tlo, thi levelset.CellType, v float32) float32 {
		if tlo == levelset.Solid || thi == levelset.Solid {
			return 0
		}
		return v
	})
}

// computeDivergence fills s.div for FLUID cells and zeroes the rest.
func (s *Simulation) computeDivergence(f *velocity.Field, cells *grid.Grid[levelset.CellType]) {
	s.pool.Run(s.div.D, func(k0, k1 int) {
		s.div.SetRange(k0, k1, func(c grid.Coord) float32 {
			if cells.Get(c) != levelset.Fluid {
				return 0
			}
			return f.Divergence(c)
		})
	})
}

// project subtracts dt/dx times the pressure gradient from every face with a
// FLUID side and no SOLID side. EMPTY cells hold zero pressure.
func (s *Simulation) project(f *velocity.Field, cells *grid.Grid[levelset.CellType], dt float64) {
	scale := float32(dt / f.Dx)
	p := s.pressure
	at := func(c grid.Coord, t levelset.CellType) float32 {
		if t != levelset.Fluid {
			return 0
		}
		return p.Get(c)
	}
	s.updateFaces(f, cells, allComponents, func(lo, hi grid.Coord, tlo, thi levelset.CellType, v float32) float32 {
		if tlo == levelset.Solid || thi == levelset.Solid {
			return 0
		}
		if tlo != levelset.Fluid && thi != levelset.Fluid {
			return v
		}
		return v - scale*(at(hi, thi)-at(lo, tlo))
	})
}

// maxDivergence returns max |div u| over FLUID cells.
func (s *Simulation) maxDivergence(f *velocity.Field, cells *grid.Grid[levelset.CellType]) float64 {
	s.pool.Run(cells.D, func(k0, k1 int) {
		for k := k0; k < k1; k++ {
			worst := 0.0
			for j := 0; j < cells.H; j++ {
				for i := 0; i < cells.W; i++ {
					c := grid.Coord{I: i, J: j, K: k}
					if cells.Get(c) != levelset.Fluid {
						continue
					}
					worst = math.Max(worst, math.Abs(float64(f.Divergence(c))))
				}
			}
			s.sliceMax[k] = worst
		}
	})

	worst := 0.0
	for _, v := range s.sliceMax {
		worst = math.Max(worst, v)
	}
	return worst
}
