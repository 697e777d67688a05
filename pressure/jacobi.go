package pressure

import (
	"github.com/pthm-cable/froth/grid"
	"github.com/pthm-cable/froth/levelset"
)

// Jacobi runs a fixed number of relaxation sweeps. Each sweep reads the
// previous iterate and writes a second buffer, so cells are independent and
// the sweep is split across the pool by z slice.
type Jacobi struct {
	Iterations int

	scratch *grid.Scalar
	pool    Runner
}

// NewJacobi creates a relaxation solver for a w×h×d grid. pool may be nil.
func NewJacobi(w, h, d, iterations int, pool Runner) *Jacobi {
	return &Jacobi{
		Iterations: iterations,
		scratch:    grid.NewScalar(w, h, d),
		pool:       pool,
	}
}

// Solve relaxes p in place, starting from its current contents. Jacobi always
// spends its full budget and reports itself converged.
func (j *Jacobi) Solve(div *grid.Scalar, cells *grid.Grid[levelset.CellType], p *grid.Scalar, dt, dx float64) Result {
	src := float32(dx * dx / dt)
	for i, t := range cells.Data {
		if t != levelset.Fluid {
			p.Data[i] = 0
		}
	}

	read, write := p, j.scratch
	for it := 0; it < j.Iterations; it++ {
		sweep := func(k0, k1 int) {
			write.SetRange(k0, k1, func(c grid.Coord) float32 {
				idx := cells.Index(c)
				if cells.Data[idx] != levelset.Fluid {
					return 0
				}
				var sum float32
				n := stencil(cells, c, func(nb int, _ levelset.CellType) {
					sum += read.Data[nb]
				})
				if n == 0 {
					return 0
				}
				return (sum - src*div.Data[idx]) / float32(n)
			})
		}
		if j.pool != nil {
			j.pool.Run(p.D, sweep)
		} else {
			sweep(0, p.D)
		}
		read, write = write, read
	}
	if read != p {
		p.CopyFrom(read)
	}

	return Result{
		Converged:  true,
		Residual:   residual(div, cells, p, dt, dx),
		Iterations: j.Iterations,
	}
}
