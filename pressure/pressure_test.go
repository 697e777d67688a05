package pressure

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/froth/grid"
	"github.com/pthm-cable/froth/levelset"
	"github.com/pthm-cable/froth/parallel"
)

// block returns an n³ grid of EMPTY cells with a FLUID cube in [lo, hi).
func block(n, lo, hi int) *grid.Grid[levelset.CellType] {
	cells := grid.New[levelset.CellType](n, n, n)
	cells.SetForEach(func(c grid.Coord) levelset.CellType {
		if c.I >= lo && c.I < hi && c.J >= lo && c.J < hi && c.K >= lo && c.K < hi {
			return levelset.Fluid
		}
		return levelset.Empty
	})
	return cells
}

func randomDivergence(cells *grid.Grid[levelset.CellType], seed int64) *grid.Scalar {
	rng := rand.New(rand.NewSource(seed))
	div := grid.NewScalar(cells.W, cells.H, cells.D)
	for i, t := range cells.Data {
		if t == levelset.Fluid {
			div.Data[i] = float32(rng.Float64()*2 - 1)
		}
	}
	return div
}

func TestJacobiSingleCellEmptyNeighbors(t *testing.T) {
	cells := block(3, 1, 2)
	div := grid.NewScalar(3, 3, 3)
	div.Set(grid.Coord{I: 1, J: 1, K: 1}, 1)
	p := grid.NewScalar(3, 3, 3)

	res := NewJacobi(3, 3, 3, 1, nil).Solve(div, cells, p, 1, 1)

	if got := p.Get(grid.Coord{I: 1, J: 1, K: 1}); math.Abs(float64(got)+1.0/6) > 1e-6 {
		t.Errorf("p = %v, want -1/6", got)
	}
	if !res.Converged || res.Iterations != 1 {
		t.Errorf("result = %+v, want converged after its single sweep", res)
	}
	if res.Residual > 1e-6 {
		t.Errorf("residual = %v, want ~0 for a decoupled cell", res.Residual)
	}
}

func TestJacobiSolidNeighborExcluded(t *testing.T) {
	cells := block(3, 1, 2)
	cells.Set(grid.Coord{I: 1, J: 0, K: 1}, levelset.Solid)
	div := grid.NewScalar(3, 3, 3)
	div.Set(grid.Coord{I: 1, J: 1, K: 1}, 1)
	p := grid.NewScalar(3, 3, 3)

	NewJacobi(3, 3, 3, 1, nil).Solve(div, cells, p, 1, 1)

	if got := p.Get(grid.Coord{I: 1, J: 1, K: 1}); math.Abs(float64(got)+0.2) > 1e-6 {
		t.Errorf("p = %v, want -1/5 with one solid face", got)
	}
}

func TestJacobiZeroesNonFluid(t *testing.T) {
	cells := block(4, 1, 3)
	div := randomDivergence(cells, 1)
	p := grid.NewScalar(4, 4, 4)
	p.Fill(3)

	NewJacobi(4, 4, 4, 10, nil).Solve(div, cells, p, 0.1, 1)

	for i, typ := range cells.Data {
		if typ != levelset.Fluid && p.Data[i] != 0 {
			t.Fatalf("non-fluid cell %v has pressure %v", cells.CoordOf(i), p.Data[i])
		}
	}
}

func TestPCGMatchesJacobi(t *testing.T) {
	pool := parallel.NewPool(4)
	defer pool.Stop()

	cells := block(8, 2, 6)
	div := randomDivergence(cells, 2)
	const dt, dx = 0.05, 0.1

	pj := grid.NewScalar(8, 8, 8)
	NewJacobi(8, 8, 8, 600, pool).Solve(div, cells, pj, dt, dx)

	pc := grid.NewScalar(8, 8, 8)
	res := NewPCG(200, 1e-6, pool).Solve(div, cells, pc, dt, dx)
	if !res.Converged {
		t.Fatalf("PCG did not converge: %+v", res)
	}
	if res.Iterations == 0 || res.Iterations > 64 {
		t.Errorf("PCG took %d iterations on a 64-unknown system", res.Iterations)
	}
	if r := residual(div, cells, pc, dt, dx); r > 1e-5 {
		t.Errorf("recomputed residual = %v", r)
	}

	for i := range pc.Data {
		if d := math.Abs(float64(pc.Data[i] - pj.Data[i])); d > 1e-4 {
			t.Fatalf("cell %v: pcg %v vs jacobi %v", cells.CoordOf(i), pc.Data[i], pj.Data[i])
		}
	}
}

func TestPCGZeroRHSConvergesImmediately(t *testing.T) {
	cells := block(4, 0, 4) // fully enclosed by the grid boundary
	div := grid.NewScalar(4, 4, 4)
	p := grid.NewScalar(4, 4, 4)

	res := NewPCG(50, 1e-6, nil).Solve(div, cells, p, 0.1, 1)

	if !res.Converged || res.Iterations != 0 {
		t.Errorf("result = %+v, want converged with no iterations", res)
	}
}

func TestPCGFailureLeavesPressureStale(t *testing.T) {
	cells := block(8, 1, 7)
	div := randomDivergence(cells, 3)
	p := grid.NewScalar(8, 8, 8)
	p.Fill(7)

	res := NewPCG(1, 1e-12, nil).Solve(div, cells, p, 0.1, 1)

	if res.Converged {
		t.Fatalf("single iteration converged to 1e-12: %+v", res)
	}
	if res.Iterations != 1 || res.Residual <= 0 {
		t.Errorf("result = %+v, want one iteration and a positive residual", res)
	}
	for i, v := range p.Data {
		if v != 7 {
			t.Fatalf("p[%d] = %v, want untouched 7", i, v)
		}
	}
}

func TestPCGIsolatedFluidCell(t *testing.T) {
	cells := grid.New[levelset.CellType](3, 3, 3)
	cells.Fill(levelset.Solid)
	cells.Set(grid.Coord{I: 1, J: 1, K: 1}, levelset.Fluid)
	div := grid.NewScalar(3, 3, 3)
	div.Set(grid.Coord{I: 1, J: 1, K: 1}, 1)
	p := grid.NewScalar(3, 3, 3)

	res := NewPCG(10, 1e-6, nil).Solve(div, cells, p, 0.1, 1)

	if !res.Converged || p.Get(grid.Coord{I: 1, J: 1, K: 1}) != 0 {
		t.Errorf("walled-in cell: result %+v, p %v", res, p.Get(grid.Coord{I: 1, J: 1, K: 1}))
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	if _, err := New(Options{Kind: "sor"}, 4, 4, 4, nil); err == nil {
		t.Error("New accepted an unknown solver kind")
	}
	s, err := New(Options{Kind: KindPCG, Iterations: 10, Tolerance: 1e-4}, 4, 4, 4, nil)
	if err != nil {
		t.Fatalf("New(pcg): %v", err)
	}
	if _, ok := s.(*PCG); !ok {
		t.Errorf("New(pcg) returned %T", s)
	}
}
