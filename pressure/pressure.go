// Package pressure solves the Poisson equation that makes the velocity field
// divergence free. Only FLUID cells are unknowns; EMPTY neighbors hold zero
// pressure and SOLID neighbors contribute no flux.
package pressure

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/froth/grid"
	"github.com/pthm-cable/froth/levelset"
)

// Result reports the outcome of one solve.
type Result struct {
	Converged  bool
	Residual   float64 // max |b - Ap| over fluid cells, in divergence units
	Iterations int
}

// LogValue implements slog.LogValuer for structured logging.
func (r Result) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("converged", r.Converged),
		slog.Float64("residual", r.Residual),
		slog.Int("iterations", r.Iterations),
	)
}

// Solver writes pressure into p for the given divergence and classification.
// Pressure is scaled so that subtracting dt/dx times its gradient from the
// face velocities removes div.
type Solver interface {
	Solve(div *grid.Scalar, cells *grid.Grid[levelset.CellType], p *grid.Scalar, dt, dx float64) Result
}

// Kind selects a solver implementation.
type Kind string

const (
	KindJacobi Kind = "jacobi"
	KindPCG    Kind = "pcg"
)

// Options configures New.
type Options struct {
	Kind       Kind
	Iterations int     // jacobi sweep count, pcg iteration cap
	Tolerance  float64 // pcg convergence threshold on the residual
}

// New builds the solver named by opts.Kind.
func New(opts Options, w, h, d int, pool Runner) (Solver, error) {
	switch opts.Kind {
	case KindJacobi, "":
		return NewJacobi(w, h, d, opts.Iterations, pool), nil
	case KindPCG:
		return NewPCG(opts.Iterations, opts.Tolerance, pool), nil
	default:
		return nil, fmt.Errorf("unknown pressure solver %q", opts.Kind)
	}
}

// Runner runs fn over [0, n) in parallel chunks. *parallel.Pool satisfies it.
type Runner interface {
	Run(n int, fn func(start, end int))
}

// stencil walks the non-solid neighbors of a FLUID cell. fn gets the neighbor
// index, or -1 for an out-of-range face (treated as solid and skipped).
// Returns the neighbor count that enters the diagonal.
func stencil(cells *grid.Grid[levelset.CellType], c grid.Coord, fn func(nb int, t levelset.CellType)) int {
	n := 0
	for _, off := range grid.Neighbors6 {
		nc := c.Add(off)
		if !cells.IsValid(nc) {
			continue
		}
		idx := cells.Index(nc)
		t := cells.Data[idx]
		if t == levelset.Solid {
			continue
		}
		n++
		fn(idx, t)
	}
	return n
}

// residual returns max |b - Ap| over fluid cells, where b = -div and
// A is the dt/dx² scaled negative Laplacian.
func residual(div *grid.Scalar, cells *grid.Grid[levelset.CellType], p *grid.Scalar, dt, dx float64) float64 {
	scale := dt / (dx * dx)
	worst := 0.0
	for idx, t := range cells.Data {
		if t != levelset.Fluid {
			continue
		}
		c := cells.CoordOf(idx)
		var sum float64
		n := stencil(cells, c, func(nb int, t levelset.CellType) {
			if t == levelset.Fluid {
				sum += float64(p.Data[nb])
			}
		})
		ap := scale * (float64(n)*float64(p.Data[idx]) - sum)
		r := -float64(div.Data[idx]) - ap
		if r < 0 {
			r = -r
		}
		if r > worst {
			worst = r
		}
	}
	return worst
}
