package levelset

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/grid"
)

// far seeds cells the march has not reached yet.
const far = float32(math.MaxFloat32)

// Reinitialize rebuilds Phi as a true distance to the current zero crossing.
//
// Cells with a face neighbor of opposite sign get sub-cell distances from
// linear root finding. Fast marching then spreads distances outward through
// the recorded closest surface points, finalizing cells in non-decreasing
// distance order. Runs single-threaded; each pop depends on earlier ones.
func (ls *LevelSet) Reinitialize() {
	ls.Phi, ls.old = ls.old, ls.Phi
	phi, old := ls.Phi, ls.old
	cells := ls.Cells

	ls.heap.Clear()

	for i, v := range old.Data {
		if cells.Data[i] == Solid {
			phi.Data[i] = v
			continue
		}
		phi.Data[i] = sign(v) * far
	}

	ls.seedInterface()
	ls.march()

	ls.Reclassify()
	ls.clamp()
}

// seedInterface assigns sub-cell distances to cells straddling the surface.
func (ls *LevelSet) seedInterface() {
	phi, old, cells := ls.Phi, ls.old, ls.Cells

	for idx := range old.Data {
		if cells.Data[idx] == Solid {
			continue
		}
		c := old.CoordOf(idx)
		p0 := old.Data[idx]

		best := math.Inf(1)
		var dir grid.Coord
		for _, n := range grid.Neighbors6 {
			nb := c.Add(n)
			if !old.IsValid(nb) || cells.Get(nb) == Solid {
				continue
			}
			p1 := old.Get(nb)
			if inside(p0) == inside(p1) {
				continue
			}
			t := float64(-p0 / (p1 - p0))
			if t < best {
				best = t
				dir = n
			}
		}
		if math.IsInf(best, 1) {
			continue
		}

		phi.Data[idx] = sign(p0) * float32(best)
		ls.Closest.Data[idx] = r3.Add(position(c), r3.Scale(best, position(dir)))
		ls.heap.Insert(int32(idx))
	}
}

// march pops cells in distance order and relaxes their face neighbors.
func (ls *LevelSet) march() {
	phi, old, cells := ls.Phi, ls.old, ls.Cells

	for {
		idx, ok := ls.heap.Pop()
		if !ok {
			return
		}
		d := abs32(phi.Data[idx])
		if ls.trace != nil {
			ls.trace(d)
		}
		if d >= ls.Bound {
			// Everything still queued is at least this far and gets clamped.
			ls.heap.Clear()
			return
		}

		cp := ls.Closest.Data[idx]
		c := phi.CoordOf(int(idx))
		for _, n := range grid.Neighbors6 {
			nb := c.Add(n)
			if !phi.IsValid(nb) {
				continue
			}
			nbIdx := phi.Index(nb)
			if cells.Data[nbIdx] == Solid {
				continue
			}

			cand := float32(r3.Norm(r3.Sub(position(nb), cp)))
			if cand < d {
				cand = d
			}
			if cand < abs32(phi.Data[nbIdx]) {
				phi.Data[nbIdx] = sign(old.Data[nbIdx]) * cand
				ls.Closest.Data[nbIdx] = cp
				ls.heap.Insert(int32(nbIdx))
			}
		}
	}
}

// clamp bounds every distance magnitude to ls.Bound.
func (ls *LevelSet) clamp() {
	b := ls.Bound
	for i, v := range ls.Phi.Data {
		if v > b {
			ls.Phi.Data[i] = b
		} else if v < -b {
			ls.Phi.Data[i] = -b
		}
	}
}

func position(c grid.Coord) r3.Vec {
	return r3.Vec{X: float64(c.I), Y: float64(c.J), Z: float64(c.K)}
}
