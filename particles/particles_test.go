package particles

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/froth/bubbles"
	"github.com/pthm-cable/froth/grid"
	"github.com/pthm-cable/froth/levelset"
	"github.com/pthm-cable/froth/velocity"
)

var testParams = Params{
	BandWidth:   1,
	PerCell:     2,
	MinRadius:   0.1,
	MaxRadius:   0.5,
	BubbleScale: 0.5,
}

// flatSurface returns an 8³ level set with fluid below y = 4.
func flatSurface() *levelset.LevelSet {
	ls := levelset.NewEmpty(8, 8, 8, levelset.DefaultBound)
	ls.Phi.SetForEach(func(c grid.Coord) float32 { return float32(c.J) - 4 })
	ls.Reclassify()
	return ls
}

// bandParticles is the seeded count for flatSurface: three layers of 8×8 cells.
const bandParticles = 3 * 8 * 8 * 2

func TestReinitializeSeedsBandOnly(t *testing.T) {
	ls := flatSurface()
	tr := NewTracker(8, 8, 8, testParams, 1)

	tr.Reinitialize(ls)

	if tr.Count() != bandParticles {
		t.Fatalf("Count() = %d, want %d", tr.Count(), bandParticles)
	}
	for _, p := range tr.Alive() {
		if j := cellOf(p.Pos).J; j < 3 || j > 5 {
			t.Errorf("particle seeded in row %d, outside the band", j)
		}
		if want := grid.Lerp(ls.Phi, p.Pos); p.Phi != want {
			t.Errorf("particle phi %v, want sampled %v", p.Phi, want)
		}
	}
}

func TestReinitializeCullsStrayAndOverfull(t *testing.T) {
	ls := flatSurface()
	tr := NewTracker(8, 8, 8, testParams, 2)
	tr.Reinitialize(ls)

	for i := 0; i < 5; i++ {
		tr.Spawn(Particle{Pos: r3.Vec{X: 2, Y: 4, Z: 2}})
	}
	tr.Spawn(Particle{Pos: r3.Vec{X: -3, Y: 4, Z: 2}}) // outside the grid
	tr.Spawn(Particle{Pos: r3.Vec{X: 2, Y: 0, Z: 2}})  // far below the band

	tr.Reinitialize(ls)

	if tr.Count() != bandParticles {
		t.Errorf("Count() = %d after cull, want %d", tr.Count(), bandParticles)
	}
	before := tr.Len()
	tr.Reinitialize(ls)
	if tr.Len() != before {
		t.Errorf("pool grew from %d to %d on a steady reseed", before, tr.Len())
	}
}

func TestAdvectMovesForward(t *testing.T) {
	f := velocity.NewField(8, 8, 8, 1)
	f.U.Fill(1)
	tr := NewTracker(8, 8, 8, testParams, 3)
	tr.Spawn(Particle{Pos: r3.Vec{X: 2, Y: 2, Z: 2}})

	tr.Advect(f, 0.5)

	if got := tr.Alive()[0].Pos.X; math.Abs(got-2.5) > 1e-6 {
		t.Errorf("x = %v after advection, want 2.5", got)
	}
}

func TestRadiusClamped(t *testing.T) {
	tr := NewTracker(1, 1, 1, testParams, 0)
	tests := []struct {
		phi, want float32
	}{
		{0, 0.1},
		{-0.3, 0.3},
		{2, 0.5},
	}
	for _, tt := range tests {
		if got := tr.Radius(&Particle{Phi: tt.phi}); got != tt.want {
			t.Errorf("Radius(phi=%v) = %v, want %v", tt.phi, got, tt.want)
		}
	}
}

func TestFeedEscapedSpawnsBubble(t *testing.T) {
	ls := flatSurface()
	f := velocity.NewField(8, 8, 8, 1)
	f.V.Fill(0.25)
	tr := NewTracker(8, 8, 8, testParams, 4)
	b := bubbles.NewTracker()

	tr.Spawn(Particle{Pos: r3.Vec{X: 3, Y: 2, Z: 3}, Phi: 0.5})  // air marker deep in fluid
	tr.Spawn(Particle{Pos: r3.Vec{X: 3, Y: 6, Z: 3}, Phi: -0.5}) // fluid marker deep in air
	tr.Spawn(Particle{Pos: r3.Vec{X: 5, Y: 2, Z: 5}, Phi: -0.5}) // fluid marker in fluid

	if n := tr.FeedEscaped(b, ls.Phi, f); n != 1 {
		t.Fatalf("FeedEscaped spawned %d bubbles, want 1", n)
	}
	if tr.Count() != 1 {
		t.Errorf("Count() = %d, want both escaped particles retired", tr.Count())
	}
	got := b.Alive()
	if len(got) != 1 {
		t.Fatalf("bubble count = %d, want 1", len(got))
	}
	if got[0].Radius != 0.25 {
		t.Errorf("bubble radius = %v, want 0.25", got[0].Radius)
	}
	if got[0].Pos != (r3.Vec{X: 3, Y: 2, Z: 3}) {
		t.Errorf("bubble spawned at %v, want the particle position", got[0].Pos)
	}
	if math.Abs(got[0].Vel.Y-0.25) > 1e-6 {
		t.Errorf("bubble velocity = %v, want local fluid velocity", got[0].Vel)
	}
}

func TestEscapedSurvivesCorrectionAndReseed(t *testing.T) {
	ls := flatSurface()
	f := velocity.NewField(8, 8, 8, 1)
	tr := NewTracker(8, 8, 8, testParams, 7)
	b := bubbles.NewTracker()
	tr.Spawn(Particle{Pos: r3.Vec{X: 3.5, Y: 2, Z: 3.5}, Phi: 0.5})

	tr.Correct(ls.Phi)
	if !tr.Alive()[0].Escaped {
		t.Fatal("Correct did not flag the escaped particle")
	}
	tr.Reinitialize(ls) // row 2 is outside the band; a flagged particle must not be culled

	if n := tr.FeedEscaped(b, ls.Phi, f); n != 1 {
		t.Errorf("FeedEscaped spawned %d bubbles after correction, want 1", n)
	}
	for _, p := range tr.Alive() {
		if p.Escaped {
			t.Fatal("flagged particle left alive after FeedEscaped")
		}
	}
}

func TestCorrectRaisesPhiAroundAirParticle(t *testing.T) {
	ls := flatSurface()
	tr := NewTracker(8, 8, 8, testParams, 5)
	tr.Spawn(Particle{Pos: r3.Vec{X: 3.5, Y: 2, Z: 3.5}, Phi: 0.5})

	if n := tr.Correct(ls.Phi); n != 1 {
		t.Fatalf("Correct used %d particles, want 1", n)
	}

	near := ls.Phi.Get(grid.Coord{I: 3, J: 2, K: 3})
	want := float32(0.5 - math.Sqrt(0.5))
	if math.Abs(float64(near-want)) > 1e-5 {
		t.Errorf("phi near particle = %v, want %v", near, want)
	}
	if far := ls.Phi.Get(grid.Coord{I: 0, J: 2, K: 0}); far != -2 {
		t.Errorf("phi far from particle = %v, want unchanged -2", far)
	}
}

func TestCorrectWithoutEscapesLeavesPhi(t *testing.T) {
	ls := flatSurface()
	orig := ls.Phi.Clone()
	tr := NewTracker(8, 8, 8, testParams, 6)
	tr.Reinitialize(ls)

	if n := tr.Correct(ls.Phi); n != 0 {
		t.Fatalf("Correct used %d particles on a fresh seed, want 0", n)
	}
	for i := range orig.Data {
		if orig.Data[i] != ls.Phi.Data[i] {
			t.Fatalf("phi[%d] changed from %v to %v", i, orig.Data[i], ls.Phi.Data[i])
		}
	}
}
