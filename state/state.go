// Package state holds the aggregate simulation state and its binary frame format.
package state

import (
	"github.com/pthm-cable/froth/bubbles"
	"github.com/pthm-cable/froth/levelset"
	"github.com/pthm-cable/froth/velocity"
)

// State is everything one simulated frame owns: the velocity field, the free
// surface and the bubble pool. The bubble tracker carries the next-id counter.
type State struct {
	Frame    int32
	Velocity *velocity.Field
	LevelSet *levelset.LevelSet
	Bubbles  *bubbles.Tracker
}

// New wraps a level set with a zero velocity field of cell size dx and an
// empty bubble pool.
func New(ls *levelset.LevelSet, dx float64) *State {
	w, h, d := ls.Dims()
	return &State{
		Velocity: velocity.NewField(w, h, d, dx),
		LevelSet: ls,
		Bubbles:  bubbles.NewTracker(),
	}
}

// Blank returns a state with no grids. ReadFrom allocates them using dx and
// bound.
func Blank(dx float64, bound float32) *State {
	return &State{
		Velocity: &velocity.Field{Dx: dx},
		LevelSet: &levelset.LevelSet{Bound: bound},
		Bubbles:  bubbles.NewTracker(),
	}
}

// Dims returns the cell grid dimensions.
func (s *State) Dims() (w, h, d int) {
	return s.LevelSet.Dims()
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	return &State{
		Frame:    s.Frame,
		Velocity: s.Velocity.Clone(),
		LevelSet: s.LevelSet.Clone(),
		Bubbles:  s.Bubbles.Clone(),
	}
}

// CopyFrom overwrites s with src. Dimensions must match.
func (s *State) CopyFrom(src *State) {
	s.Frame = src.Frame
	s.Velocity.CopyFrom(src.Velocity)
	s.LevelSet.CopyFrom(src.LevelSet)
	s.Bubbles.Restore(src.Bubbles.Slots(), src.Bubbles.NextID)
}
