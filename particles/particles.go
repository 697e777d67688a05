// Package particles implements the particle level set: marker particles seeded
// in a band around the free surface that repair grid-level-set diffusion and
// detect air escaping into the fluid as bubbles.
package particles

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/bubbles"
	"github.com/pthm-cable/froth/grid"
	"github.com/pthm-cable/froth/levelset"
	"github.com/pthm-cable/froth/pool"
	"github.com/pthm-cable/froth/velocity"
)

// Particle is a massless marker. Phi is the distance sampled when it was
// spawned; its sign records which side of the surface the particle belongs to.
// Escaped is set by Correct and consumed by FeedEscaped.
type Particle struct {
	Pos     r3.Vec
	Phi     float32
	Alive   bool
	Escaped bool
}

// Params tunes the tracker.
type Params struct {
	BandWidth   float32 // half-width of the seeded band, in cells
	PerCell     int     // target particle count per band cell
	MinRadius   float32
	MaxRadius   float32
	BubbleScale float32 // bubble radius = particle radius * BubbleScale
}

// Tracker owns the marker particle pool and its scratch grids.
type Tracker struct {
	Params Params

	arena  *pool.Arena[Particle]
	rng    *rand.Rand
	counts *grid.Grid[int32]
	plus   *grid.Scalar
	minus  *grid.Scalar
}

// NewTracker creates an empty tracker for a w×h×d grid.
func NewTracker(w, h, d int, params Params, seed int64) *Tracker {
	return &Tracker{
		Params: params,
		arena:  pool.NewArena[Particle](w * h * d),
		rng:    rand.New(rand.NewSource(seed)),
		counts: grid.New[int32](w, h, d),
		plus:   grid.NewScalar(w, h, d),
		minus:  grid.NewScalar(w, h, d),
	}
}

// Radius returns the particle's sphere radius, clamped to the configured range.
func (t *Tracker) Radius(p *Particle) float32 {
	r := float32(math.Abs(float64(p.Phi)))
	if r < t.Params.MinRadius {
		return t.Params.MinRadius
	}
	if r > t.Params.MaxRadius {
		return t.Params.MaxRadius
	}
	return r
}

// Reinitialize culls particles that left the grid, drifted out of the band or
// overfill their cell, then tops up every under-populated band cell with
// jittered particles that capture the local distance. Escaped particles are
// neither culled nor counted.
func (t *Tracker) Reinitialize(ls *levelset.LevelSet) {
	phi, cells := ls.Phi, ls.Cells
	band := t.Params.BandWidth
	target := int32(t.Params.PerCell)

	t.counts.Fill(0)
	t.arena.Each(func(slot int, p *Particle) {
		if p.Escaped {
			return
		}
		c := cellOf(p.Pos)
		if !t.counts.IsValid(c) || cells.Get(c) == levelset.Solid {
			t.kill(slot, p)
			return
		}
		if abs32(grid.Lerp(phi, p.Pos)) > band {
			t.kill(slot, p)
			return
		}
		n := t.counts.Get(c)
		if n >= target {
			t.kill(slot, p)
			return
		}
		t.counts.Set(c, n+1)
	})

	for idx, n := range t.counts.Data {
		if n >= target || cells.Data[idx] == levelset.Solid || abs32(phi.Data[idx]) > band {
			continue
		}
		c := t.counts.CoordOf(idx)
		for ; n < target; n++ {
			pos := r3.Vec{
				X: float64(c.I) + t.rng.Float64() - 0.5,
				Y: float64(c.J) + t.rng.Float64() - 0.5,
				Z: float64(c.K) + t.rng.Float64() - 0.5,
			}
			t.arena.Spawn(Particle{Pos: pos, Phi: grid.Lerp(phi, pos), Alive: true})
		}
		t.counts.Data[idx] = target
	}
}

// Advect pushes every particle forward through f with the midpoint method.
func (t *Tracker) Advect(f *velocity.Field, dt float64) {
	t.arena.Each(func(_ int, p *Particle) {
		p.Pos = f.Backtrace(p.Pos, -dt, velocity.Midpoint)
	})
}

// escaped reports whether p sits on the wrong side of the surface by more
// than its own radius.
func (t *Tracker) escaped(p *Particle, phi *grid.Scalar) bool {
	v := grid.Lerp(phi, p.Pos)
	return inside(p.Phi) != inside(v) && abs32(v) > t.Radius(p)
}

// FeedEscaped retires every particle flagged by Correct or escaped against
// phi. Air-side particles that ended up inside the grid become bubbles
// carrying the local fluid velocity; fluid-side strays are dropped. Returns
// the number of bubbles spawned.
func (t *Tracker) FeedEscaped(b *bubbles.Tracker, phi *grid.Scalar, f *velocity.Field) int {
	spawned := 0
	t.arena.Each(func(slot int, p *Particle) {
		if !p.Escaped && !t.escaped(p, phi) {
			return
		}
		if !inside(p.Phi) && phi.IsValid(cellOf(p.Pos)) {
			b.Spawn(p.Pos, t.Radius(p)*t.Params.BubbleScale, f.Lerp(p.Pos))
			spawned++
		}
		t.kill(slot, p)
	})
	return spawned
}

// Correct rebuilds phi near escaped particles. Air-side particles raise a
// maximum envelope, fluid-side particles lower a minimum envelope, and each
// cell takes whichever envelope is closer to zero. Escaped particles are
// flagged for FeedEscaped. Returns the number of escaped particles used.
func (t *Tracker) Correct(phi *grid.Scalar) int {
	t.plus.CopyFrom(phi)
	t.minus.CopyFrom(phi)

	used := 0
	t.arena.Each(func(_ int, p *Particle) {
		p.Escaped = t.escaped(p, phi)
		if !p.Escaped {
			return
		}
		used++
		r := t.Radius(p)
		s := float32(1)
		if inside(p.Phi) {
			s = -1
		}

		base := grid.Coord{
			I: int(math.Floor(p.Pos.X)),
			J: int(math.Floor(p.Pos.Y)),
			K: int(math.Floor(p.Pos.Z)),
		}
		for corner := 0; corner < 8; corner++ {
			c := base.Add(grid.Coord{I: corner & 1, J: corner >> 1 & 1, K: corner >> 2 & 1})
			if !phi.IsValid(c) {
				continue
			}
			dist := r3.Norm(r3.Sub(cellPosition(c), p.Pos))
			v := s * (r - float32(dist))
			idx := phi.Index(c)
			if s > 0 {
				if v > t.plus.Data[idx] {
					t.plus.Data[idx] = v
				}
			} else if v < t.minus.Data[idx] {
				t.minus.Data[idx] = v
			}
		}
	})

	if used == 0 {
		return 0
	}
	for i := range phi.Data {
		pv, mv := t.plus.Data[i], t.minus.Data[i]
		if abs32(pv) <= abs32(mv) {
			phi.Data[i] = pv
		} else {
			phi.Data[i] = mv
		}
	}
	return used
}

// Count returns the number of live particles.
func (t *Tracker) Count() int { return t.arena.Count() }

// Len returns the pool size, live and dead.
func (t *Tracker) Len() int { return t.arena.Len() }

// Alive returns a copy of every live particle.
func (t *Tracker) Alive() []Particle {
	return t.arena.AppendLive(make([]Particle, 0, t.arena.Count()))
}

// Spawn adds a particle directly. Used to seed markers from external sources.
func (t *Tracker) Spawn(p Particle) int {
	p.Alive = true
	p.Escaped = false
	return t.arena.Spawn(p)
}

// Kill retires the particle in slot.
func (t *Tracker) Kill(slot int) {
	if t.arena.Alive(slot) {
		t.kill(slot, t.arena.At(slot))
	}
}

func (t *Tracker) kill(slot int, p *Particle) {
	p.Alive = false
	p.Escaped = false
	t.arena.Kill(slot)
}

func cellOf(p r3.Vec) grid.Coord {
	return grid.Coord{
		I: int(math.Floor(p.X + 0.5)),
		J: int(math.Floor(p.Y + 0.5)),
		K: int(math.Floor(p.Z + 0.5)),
	}
}

func cellPosition(c grid.Coord) r3.Vec {
	return r3.Vec{X: float64(c.I), Y: float64(c.J), Z: float64(c.K)}
}

func inside(phi float32) bool { return phi <= 0 }

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
