package pressure

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/froth/grid"
	"github.com/pthm-cable/froth/levelset"
)

// csr is the assembled pressure matrix in compressed sparse row form. Row r
// is the r-th FLUID cell in grid order.
type csr struct {
	rowPtr []int32
	cols   []int32
	vals   []float64
	diag   []float64
	cellOf []int32 // row -> grid index
	rowOf  []int32 // grid index -> row, -1 for non-fluid
}

func (m *csr) rows() int { return len(m.cellOf) }

// assemble builds A = dt/dx² · (negative Laplacian) over FLUID cells.
// Fluid-fluid pairs add symmetric off-diagonals, fluid-empty pairs only add
// to the diagonal, and fluid-solid pairs add nothing.
func (m *csr) assemble(cells *grid.Grid[levelset.CellType], dt, dx float64) {
	scale := dt / (dx * dx)

	if len(m.rowOf) != cells.Len() {
		m.rowOf = make([]int32, cells.Len())
	}
	m.cellOf = m.cellOf[:0]
	for idx, t := range cells.Data {
		if t == levelset.Fluid && stencil(cells, cells.CoordOf(idx), func(int, levelset.CellType) {}) > 0 {
			m.rowOf[idx] = int32(len(m.cellOf))
			m.cellOf = append(m.cellOf, int32(idx))
		} else {
			m.rowOf[idx] = -1
		}
	}

	m.rowPtr = append(m.rowPtr[:0], 0)
	m.cols = m.cols[:0]
	m.vals = m.vals[:0]
	m.diag = m.diag[:0]
	for _, idx := range m.cellOf {
		c := cells.CoordOf(int(idx))
		n := stencil(cells, c, func(nb int, t levelset.CellType) {
			if t == levelset.Fluid {
				m.cols = append(m.cols, m.rowOf[nb])
				m.vals = append(m.vals, -scale)
			}
		})
		m.diag = append(m.diag, float64(n)*scale)
		m.rowPtr = append(m.rowPtr, int32(len(m.cols)))
	}
}

// mulVec sets dst = A·x.
func (m *csr) mulVec(dst, x []float64, pool Runner) {
	body := func(r0, r1 int) {
		for r := r0; r < r1; r++ {
			sum := m.diag[r] * x[r]
			for k := m.rowPtr[r]; k < m.rowPtr[r+1]; k++ {
				sum += m.vals[k] * x[m.cols[k]]
			}
			dst[r] = sum
		}
	}
	if pool != nil {
		pool.Run(m.rows(), body)
	} else {
		body(0, m.rows())
	}
}

// PCG solves the pressure system with Jacobi-preconditioned conjugate
// gradients. Vector work goes through gonum/floats.
type PCG struct {
	MaxIterations int
	Tolerance     float64

	pool Runner
	m    csr

	x, r, z, s, q []float64
}

// NewPCG creates a conjugate-gradient solver. pool may be nil.
func NewPCG(maxIterations int, tolerance float64, pool Runner) *PCG {
	return &PCG{MaxIterations: maxIterations, Tolerance: tolerance, pool: pool}
}

// Solve writes the solution into p only on convergence. On failure p keeps
// its previous contents and the result carries the final residual.
func (s *PCG) Solve(div *grid.Scalar, cells *grid.Grid[levelset.CellType], p *grid.Scalar, dt, dx float64) Result {
	s.m.assemble(cells, dt, dx)
	n := s.m.rows()
	s.resize(n)

	for row, idx := range s.m.cellOf {
		s.r[row] = -float64(div.Data[idx])
	}
	for i := range s.x {
		s.x[i] = 0
	}

	var res Result
	if n > 0 {
		res.Residual = floats.Norm(s.r, math.Inf(1))
	}
	if res.Residual <= s.Tolerance {
		res.Converged = true
		s.scatter(p)
		return res
	}

	floats.DivTo(s.z, s.r, s.m.diag)
	copy(s.s, s.z)
	sigma := floats.Dot(s.r, s.z)

	for res.Iterations < s.MaxIterations {
		res.Iterations++

		s.m.mulVec(s.q, s.s, s.pool)
		denom := floats.Dot(s.s, s.q)
		if denom == 0 {
			break
		}
		alpha := sigma / denom
		floats.AddScaled(s.x, alpha, s.s)
		floats.AddScaled(s.r, -alpha, s.q)

		res.Residual = floats.Norm(s.r, math.Inf(1))
		if res.Residual <= s.Tolerance {
			res.Converged = true
			s.scatter(p)
			return res
		}

		floats.DivTo(s.z, s.r, s.m.diag)
		sigmaNew := floats.Dot(s.r, s.z)
		floats.AddScaledTo(s.s, s.z, sigmaNew/sigma, s.s)
		sigma = sigmaNew
	}
	return res
}

// scatter writes the solution into p, zeroing every non-fluid cell.
func (s *PCG) scatter(p *grid.Scalar) {
	for idx, row := range s.m.rowOf {
		if row < 0 {
			p.Data[idx] = 0
		} else {
			p.Data[idx] = float32(s.x[row])
		}
	}
}

func (s *PCG) resize(n int) {
	if cap(s.x) < n {
		s.x = make([]float64, n)
		s.r = make([]float64, n)
		s.z = make([]float64, n)
		s.s = make([]float64, n)
		s.q = make([]float64, n)
		return
	}
	s.x, s.r, s.z, s.s, s.q = s.x[:n], s.r[:n], s.z[:n], s.s[:n], s.q[:n]
}
