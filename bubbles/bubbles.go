// Package bubbles tracks sub-grid air bubbles carried by the fluid.
package bubbles

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/pool"
	"github.com/pthm-cable/froth/velocity"
)

// Bubble is a sub-grid air pocket. Positions are in cell units.
type Bubble struct {
	Pos    r3.Vec
	Radius float32
	Vel    r3.Vec
	ID     int32
	Alive  bool
}

// Tracker owns the bubble pool. Bubbles follow a single buoyancy-drag law:
// each step a bubble picks up the local fluid velocity and an acceleration
// opposite to gravity.
//
//	v += u(x) - g
//	x += v*dt/dx
type Tracker struct {
	arena  *pool.Arena[Bubble]
	NextID int32
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{arena: pool.NewArena[Bubble](256)}
}

// Spawn adds a bubble, reusing a dead slot when one exists, and returns its id.
func (t *Tracker) Spawn(pos r3.Vec, radius float32, vel r3.Vec) int32 {
	id := t.NextID
	t.NextID++
	t.arena.Spawn(Bubble{Pos: pos, Radius: radius, Vel: vel, ID: id, Alive: true})
	return id
}

// Advect moves every live bubble through f and kills those leaving the domain.
func (t *Tracker) Advect(f *velocity.Field, gravity r3.Vec, dt float64) {
	w, h, d := f.Dims()

	t.arena.Each(func(slot int, b *Bubble) {
		b.Vel = r3.Add(b.Vel, r3.Sub(f.Lerp(b.Pos), gravity))
		b.Pos = r3.Add(b.Pos, r3.Scale(dt/f.Dx, b.Vel))

		if !inDomain(b.Pos, w, h, d) {
			b.Alive = false
			t.arena.Kill(slot)
		}
	})
}

// Kill removes the bubble in slot.
func (t *Tracker) Kill(slot int) {
	if t.arena.Alive(slot) {
		t.arena.At(slot).Alive = false
		t.arena.Kill(slot)
	}
}

// Count returns the number of live bubbles.
func (t *Tracker) Count() int { return t.arena.Count() }

// Len returns the pool size, live and dead.
func (t *Tracker) Len() int { return t.arena.Len() }

// Alive returns a copy of every live bubble.
func (t *Tracker) Alive() []Bubble {
	return t.arena.AppendLive(make([]Bubble, 0, t.arena.Count()))
}

// Slots returns a copy of every slot, dead ones included.
func (t *Tracker) Slots() []Bubble {
	out := make([]Bubble, t.arena.Len())
	for i := range out {
		out[i] = *t.arena.At(i)
	}
	return out
}

// Restore replaces the pool with slots and sets the id counter.
func (t *Tracker) Restore(slots []Bubble, nextID int32) {
	alive := make([]bool, len(slots))
	for i, b := range slots {
		alive[i] = b.Alive
	}
	t.arena.Restore(slots, alive)
	t.NextID = nextID
}

// Clone returns a deep copy.
func (t *Tracker) Clone() *Tracker {
	c := NewTracker()
	c.Restore(t.Slots(), t.NextID)
	return c
}

// inDomain reports whether p lies inside the cell-space bounds of a w×h×d grid.
func inDomain(p r3.Vec, w, h, d int) bool {
	return p.X >= -0.5 && p.X < float64(w)-0.5 &&
		p.Y >= -0.5 && p.Y < float64(h)-0.5 &&
		p.Z >= -0.5 && p.Z < float64(d)-0.5
}
