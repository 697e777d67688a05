// Package grid provides dense 3D grid storage addressed by integer cell coordinates.
package grid

// Coord addresses a cell by integer index along each axis.
type Coord struct {
	I, J, K int
}

// Add returns c offset by o.
func (c Coord) Add(o Coord) Coord {
	return Coord{c.I + o.I, c.J + o.J, c.K + o.K}
}

// Neighbors6 lists the face-adjacent offsets in -x, +x, -y, +y, -z, +z order.
var Neighbors6 = [6]Coord{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// Grid is a dense W×H×D array. Dimensions never change after creation.
// Cells are stored with I varying fastest: index = (K*H + J)*W + I.
type Grid[T any] struct {
	W, H, D int
	Data    []T
}

// New allocates a zeroed grid.
func New[T any](w, h, d int) *Grid[T] {
	return &Grid[T]{W: w, H: h, D: d, Data: make([]T, w*h*d)}
}

// Len returns the total cell count.
func (g *Grid[T]) Len() int { return len(g.Data) }

// Index returns the linear index of c. c must be valid.
func (g *Grid[T]) Index(c Coord) int {
	return (c.K*g.H+c.J)*g.W + c.I
}

// CoordOf inverts Index.
func (g *Grid[T]) CoordOf(idx int) Coord {
	i := idx % g.W
	idx /= g.W
	return Coord{I: i, J: idx % g.H, K: idx / g.H}
}

// IsValid reports whether c lies inside the grid.
func (g *Grid[T]) IsValid(c Coord) bool {
	return c.I >= 0 && c.I < g.W && c.J >= 0 && c.J < g.H && c.K >= 0 && c.K < g.D
}

// Get returns the value at c. c must be valid.
func (g *Grid[T]) Get(c Coord) T {
	return g.Data[g.Index(c)]
}

// Set stores v at c. c must be valid.
func (g *Grid[T]) Set(c Coord, v T) {
	g.Data[g.Index(c)] = v
}

// ClampGet returns the value of the nearest boundary cell when c is out of range.
func (g *Grid[T]) ClampGet(c Coord) T {
	return g.Data[g.Index(g.Clamp(c))]
}

// Clamp moves c onto the nearest valid cell.
func (g *Grid[T]) Clamp(c Coord) Coord {
	return Coord{clampInt(c.I, g.W-1), clampInt(c.J, g.H-1), clampInt(c.K, g.D-1)}
}

// SetForEach rewrites every cell as f(coord).
func (g *Grid[T]) SetForEach(f func(Coord) T) {
	g.SetRange(0, g.D, f)
}

// SetRange rewrites the cells of slices k0 <= K < k1. Disjoint ranges may run concurrently.
func (g *Grid[T]) SetRange(k0, k1 int, f func(Coord) T) {
	for k := k0; k < k1; k++ {
		for j := 0; j < g.H; j++ {
			base := (k*g.H + j) * g.W
			for i := 0; i < g.W; i++ {
				g.Data[base+i] = f(Coord{i, j, k})
			}
		}
	}
}

// Fill sets every cell to v.
func (g *Grid[T]) Fill(v T) {
	for i := range g.Data {
		g.Data[i] = v
	}
}

// SameSize reports whether o has identical dimensions.
func (g *Grid[T]) SameSize(w, h, d int) bool {
	return g.W == w && g.H == h && g.D == d
}

// Clone returns a deep copy.
func (g *Grid[T]) Clone() *Grid[T] {
	c := &Grid[T]{W: g.W, H: g.H, D: g.D, Data: make([]T, len(g.Data))}
	copy(c.Data, g.Data)
	return c
}

// CopyFrom overwrites g with src. Both grids must have the same dimensions.
func (g *Grid[T]) CopyFrom(src *Grid[T]) {
	copy(g.Data, src.Data)
}

func clampInt(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
