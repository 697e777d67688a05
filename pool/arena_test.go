package pool

import "testing"

func TestKillThenSpawnReusesSlots(t *testing.T) {
	a := NewArena[int](0)
	for i := 0; i < 10; i++ {
		a.Spawn(i)
	}
	for _, slot := range []int{1, 4, 7} {
		a.Kill(slot)
	}
	if a.Count() != 7 {
		t.Fatalf("Count() = %d after kills, want 7", a.Count())
	}

	for i := 0; i < 3; i++ {
		slot := a.Spawn(100 + i)
		if slot != 1 && slot != 4 && slot != 7 {
			t.Errorf("Spawn reused slot %d, want a freed slot", slot)
		}
	}
	if a.Len() != 10 {
		t.Errorf("Len() = %d after respawn, want 10 (no growth)", a.Len())
	}
	if a.Count() != 10 {
		t.Errorf("Count() = %d, want 10", a.Count())
	}
}

func TestKillTwiceIsNoop(t *testing.T) {
	a := NewArena[string](2)
	s := a.Spawn("x")
	a.Kill(s)
	a.Kill(s)
	if a.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", a.Count())
	}
	a.Spawn("y")
	a.Spawn("z")
	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2: double kill must not free a slot twice", a.Len())
	}
}

func TestEachVisitsOnlyLive(t *testing.T) {
	a := NewArena[int](4)
	for i := 0; i < 4; i++ {
		a.Spawn(i)
	}
	a.Kill(2)

	var seen []int
	a.Each(func(_ int, v *int) { seen = append(seen, *v) })
	if len(seen) != 3 || seen[0] != 0 || seen[1] != 1 || seen[2] != 3 {
		t.Errorf("Each visited %v, want [0 1 3]", seen)
	}
	if live := a.AppendLive(nil); len(live) != 3 {
		t.Errorf("AppendLive returned %d values, want 3", len(live))
	}
}

func TestRestoreRebuildsFreeStack(t *testing.T) {
	a := NewArena[int](0)
	a.Restore([]int{10, 11, 12, 13}, []bool{true, false, true, false})
	if a.Count() != 2 {
		t.Fatalf("Count() = %d after restore, want 2", a.Count())
	}
	a.Spawn(20)
	a.Spawn(21)
	if a.Len() != 4 {
		t.Errorf("Len() = %d, want 4: restored dead slots must be reused", a.Len())
	}
	a.Spawn(22)
	if a.Len() != 5 {
		t.Errorf("Len() = %d, want growth to 5", a.Len())
	}
}

func TestReset(t *testing.T) {
	a := NewArena[int](0)
	a.Spawn(1)
	a.Spawn(2)
	a.Reset()
	if a.Count() != 0 || a.Alive(0) || a.Alive(1) {
		t.Fatal("Reset left live slots")
	}
	a.Spawn(3)
	if a.Len() != 2 {
		t.Errorf("Len() = %d, want 2", a.Len())
	}
}
