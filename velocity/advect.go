package velocity

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/grid"
	"github.com/pthm-cable/froth/parallel"
)

// Scheme selects the backtracking integrator.
type Scheme int

const (
	// Midpoint is the 2-stage midpoint method.
	Midpoint Scheme = iota
	// RK3 is a 3-stage Heun-type method with weights 2/9, 3/9, 4/9.
	RK3
)

// ParseScheme maps a config name to a Scheme.
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "", "midpoint":
		return Midpoint, nil
	case "rk3":
		return RK3, nil
	}
	return Midpoint, fmt.Errorf("unknown advection scheme %q", name)
}

func (s Scheme) String() string {
	if s == RK3 {
		return "rk3"
	}
	return "midpoint"
}

// Backtrace follows the flow backward from p for dt seconds and returns the
// departure point. A negative dt traces forward.
func (f *Field) Backtrace(p r3.Vec, dt float64, s Scheme) r3.Vec {
	h := dt / f.Dx
	k1 := f.Lerp(p)
	if s == RK3 {
		k2 := f.Lerp(r3.Sub(p, r3.Scale(0.5*h, k1)))
		k3 := f.Lerp(r3.Sub(p, r3.Scale(0.75*h, k2)))
		sum := r3.Add(r3.Add(r3.Scale(2.0/9, k1), r3.Scale(3.0/9, k2)), r3.Scale(4.0/9, k3))
		return r3.Sub(p, r3.Scale(h, sum))
	}
	mid := r3.Sub(p, r3.Scale(0.5*h, k1))
	return r3.Sub(p, r3.Scale(h, f.Lerp(mid)))
}

// Advect writes src transported through itself for dt into dst. dst and src
// must be distinct fields of equal size. Each face reads only src.
func Advect(dst, src *Field, dt float64, s Scheme, pool *parallel.Pool) {
	for comp := X; comp <= Z; comp++ {
		out := dst.Component(comp)
		pool.Run(out.D, func(k0, k1 int) {
			out.SetRange(k0, k1, func(c grid.Coord) float32 {
				from := src.Backtrace(FacePosition(comp, c), dt, s)
				return src.SampleComponent(comp, from)
			})
		})
	}
	dst.Dx = src.Dx
}

// AdvectScalar transports a cell-centered field through vel into dst using
// clamped Catmull-Rom sampling. dst and src must be distinct.
func AdvectScalar(dst, src *grid.Scalar, vel *Field, dt float64, s Scheme, pool *parallel.Pool) {
	pool.Run(dst.D, func(k0, k1 int) {
		dst.SetRange(k0, k1, func(c grid.Coord) float32 {
			return grid.Crerp(src, vel.Backtrace(cellPosition(c), dt, s))
		})
	})
}
