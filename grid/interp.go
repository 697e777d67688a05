package grid

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Scalar is a grid of float32 samples located at integer coordinates.
type Scalar = Grid[float32]

// NewScalar allocates a zeroed scalar grid.
func NewScalar(w, h, d int) *Scalar {
	return New[float32](w, h, d)
}

// Lerp samples g at a continuous coordinate with trilinear interpolation.
// Coordinates outside the grid are clamped to the boundary first.
func Lerp(g *Scalar, p r3.Vec) float32 {
	x, i0 := split(p.X, g.W)
	y, j0 := split(p.Y, g.H)
	z, k0 := split(p.Z, g.D)

	c000 := g.ClampGet(Coord{i0, j0, k0})
	c100 := g.ClampGet(Coord{i0 + 1, j0, k0})
	c010 := g.ClampGet(Coord{i0, j0 + 1, k0})
	c110 := g.ClampGet(Coord{i0 + 1, j0 + 1, k0})
	c001 := g.ClampGet(Coord{i0, j0, k0 + 1})
	c101 := g.ClampGet(Coord{i0 + 1, j0, k0 + 1})
	c011 := g.ClampGet(Coord{i0, j0 + 1, k0 + 1})
	c111 := g.ClampGet(Coord{i0 + 1, j0 + 1, k0 + 1})

	c00 := lerp(c000, c100, x)
	c10 := lerp(c010, c110, x)
	c01 := lerp(c001, c101, x)
	c11 := lerp(c011, c111, x)

	return lerp(lerp(c00, c10, y), lerp(c01, c11, y), z)
}

// Crerp samples g with tricubic Catmull-Rom interpolation over a 4×4×4 stencil.
// Every intermediate result is clamped to its two central control points so the
// interpolant never overshoots the local data.
func Crerp(g *Scalar, p r3.Vec) float32 {
	x, i1 := split(p.X, g.W)
	y, j1 := split(p.Y, g.H)
	z, k1 := split(p.Z, g.D)

	var planes [4]float32
	for dk := 0; dk < 4; dk++ {
		var rows [4]float32
		for dj := 0; dj < 4; dj++ {
			var line [4]float32
			for di := 0; di < 4; di++ {
				line[di] = g.ClampGet(Coord{i1 - 1 + di, j1 - 1 + dj, k1 - 1 + dk})
			}
			rows[dj] = catmullRom(line, x)
		}
		planes[dk] = catmullRom(rows, y)
	}
	return catmullRom(planes, z)
}

// split clamps v into [0, n-1] and returns the fractional part and the floor index.
func split(v float64, n int) (float32, int) {
	hi := float64(n - 1)
	if v < 0 || math.IsNaN(v) {
		v = 0
	} else if v > hi {
		v = hi
	}
	f := math.Floor(v)
	return float32(v - f), int(f)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func catmullRom(p [4]float32, t float32) float32 {
	t2 := t * t
	t3 := t2 * t
	v := 0.5 * (2*p[1] +
		(p[2]-p[0])*t +
		(2*p[0]-5*p[1]+4*p[2]-p[3])*t2 +
		(3*p[1]-p[0]-3*p[2]+p[3])*t3)

	lo, hi := p[1], p[2]
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
