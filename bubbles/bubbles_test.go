package bubbles

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/velocity"
)

var gravity = r3.Vec{Y: -9.8}

func TestSpawnAssignsIncreasingIDs(t *testing.T) {
	tr := NewTracker()
	a := tr.Spawn(r3.Vec{X: 1, Y: 1, Z: 1}, 0.2, r3.Vec{})
	b := tr.Spawn(r3.Vec{X: 2, Y: 1, Z: 1}, 0.2, r3.Vec{})
	if a != 0 || b != 1 || tr.NextID != 2 {
		t.Fatalf("ids = %d, %d, next %d; want 0, 1, 2", a, b, tr.NextID)
	}
}

func TestAdvectRisesAgainstGravity(t *testing.T) {
	f := velocity.NewField(8, 8, 8, 1)
	tr := NewTracker()
	tr.Spawn(r3.Vec{X: 4, Y: 2, Z: 4}, 0.2, r3.Vec{})

	tr.Advect(f, gravity, 1.0/60)

	b := tr.Alive()[0]
	if b.Vel != (r3.Vec{Y: 9.8}) {
		t.Errorf("vel = %v, want buoyancy only {0 9.8 0}", b.Vel)
	}
	if want := 2 + 9.8/60; math.Abs(b.Pos.Y-want) > 1e-12 {
		t.Errorf("pos.y = %v, want %v", b.Pos.Y, want)
	}
}

func TestAdvectAddsFluidVelocityAndBuoyancy(t *testing.T) {
	f := velocity.NewField(8, 8, 8, 1)
	f.U.Fill(1)
	tr := NewTracker()
	tr.Spawn(r3.Vec{X: 1, Y: 3, Z: 4}, 0.2, r3.Vec{})

	tests := []r3.Vec{
		{X: 1, Y: 9.8},
		{X: 2, Y: 19.6}, // no damping: the second step adds the same increment
	}
	for step, want := range tests {
		tr.Advect(f, gravity, 0.01)
		got := tr.Alive()[0].Vel
		if math.Abs(got.X-want.X) > 1e-6 || math.Abs(got.Y-want.Y) > 1e-9 || got.Z != 0 {
			t.Errorf("step %d: vel = %v, want %v", step+1, got, want)
		}
	}
}

func TestAdvectScalesPositionByCellSize(t *testing.T) {
	f := velocity.NewField(8, 8, 8, 0.5)
	tr := NewTracker()
	tr.Spawn(r3.Vec{X: 4, Y: 1, Z: 4}, 0.2, r3.Vec{})

	tr.Advect(f, gravity, 0.01)

	if got, want := tr.Alive()[0].Pos.Y, 1+9.8*0.01/0.5; math.Abs(got-want) > 1e-12 {
		t.Errorf("pos.y = %v, want %v", got, want)
	}
}

func TestLeavingDomainKillsAndFreesSlot(t *testing.T) {
	f := velocity.NewField(4, 4, 4, 1)
	tr := NewTracker()
	tr.Spawn(r3.Vec{X: 1, Y: 3.4, Z: 1}, 0.1, r3.Vec{Y: 20})
	tr.Spawn(r3.Vec{X: 1, Y: 1, Z: 1}, 0.1, r3.Vec{})

	tr.Advect(f, r3.Vec{}, 0.1)

	if tr.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 after escape", tr.Count())
	}
	if tr.Slots()[0].Alive {
		t.Error("escaped bubble slot still flagged alive")
	}

	tr.Spawn(r3.Vec{X: 2, Y: 2, Z: 2}, 0.1, r3.Vec{})
	if tr.Len() != 2 {
		t.Errorf("Len() = %d, want 2: dead slot must be reused", tr.Len())
	}
}

func TestKillNSpawnNKeepsPoolSize(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 20; i++ {
		tr.Spawn(r3.Vec{X: float64(i)}, 0.1, r3.Vec{})
	}
	for slot := 0; slot < 20; slot += 2 {
		tr.Kill(slot)
	}
	for i := 0; i < 10; i++ {
		tr.Spawn(r3.Vec{}, 0.1, r3.Vec{})
	}
	if tr.Len() != 20 || tr.Count() != 20 {
		t.Errorf("Len=%d Count=%d, want 20/20", tr.Len(), tr.Count())
	}
}

func TestCloneRestore(t *testing.T) {
	tr := NewTracker()
	tr.Spawn(r3.Vec{X: 1}, 0.3, r3.Vec{})
	tr.Spawn(r3.Vec{X: 2}, 0.4, r3.Vec{})
	tr.Kill(0)

	c := tr.Clone()
	if c.NextID != 2 || c.Count() != 1 || c.Len() != 2 {
		t.Fatalf("clone next=%d count=%d len=%d", c.NextID, c.Count(), c.Len())
	}
	c.Spawn(r3.Vec{}, 0.1, r3.Vec{})
	if tr.Count() != 1 {
		t.Error("spawning into clone changed the original")
	}
}
