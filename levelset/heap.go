package levelset

// notPresent marks a cell that is not currently in the heap.
const notPresent = -1

// MinHeap is a binary min-heap of cell indices ranked by an external key that
// may change while a cell is queued. pos tracks each cell's heap slot so a
// re-insert can restore order in place instead of adding a duplicate.
// Not safe for concurrent use.
type MinHeap struct {
	items []int32
	pos   []int32
	key   func(idx int32) float32
}

// NewMinHeap creates a heap over n cells ranked by key.
func NewMinHeap(n int, key func(idx int32) float32) *MinHeap {
	pos := make([]int32, n)
	for i := range pos {
		pos[i] = notPresent
	}
	return &MinHeap{
		items: make([]int32, 0, n),
		pos:   pos,
		key:   key,
	}
}

// Len returns the number of queued cells.
func (h *MinHeap) Len() int { return len(h.items) }

// Contains reports whether idx is queued.
func (h *MinHeap) Contains(idx int32) bool { return h.pos[idx] != notPresent }

// Clear empties the heap.
func (h *MinHeap) Clear() {
	for _, idx := range h.items {
		h.pos[idx] = notPresent
	}
	h.items = h.items[:0]
}

// Insert queues idx, or re-heapifies it in place if already queued.
func (h *MinHeap) Insert(idx int32) {
	if p := h.pos[idx]; p != notPresent {
		h.down(h.up(int(p)))
		return
	}
	h.items = append(h.items, idx)
	h.pos[idx] = int32(len(h.items) - 1)
	h.up(len(h.items) - 1)
}

// Pop removes and returns the cell with the smallest key.
func (h *MinHeap) Pop() (int32, bool) {
	if len(h.items) == 0 {
		return 0, false
	}
	top := h.items[0]
	last := len(h.items) - 1
	h.swap(0, last)
	h.items = h.items[:last]
	h.pos[top] = notPresent
	if last > 0 {
		h.down(0)
	}
	return top, true
}

func (h *MinHeap) less(a, b int) bool {
	return h.key(h.items[a]) < h.key(h.items[b])
}

func (h *MinHeap) swap(a, b int) {
	h.items[a], h.items[b] = h.items[b], h.items[a]
	h.pos[h.items[a]] = int32(a)
	h.pos[h.items[b]] = int32(b)
}

func (h *MinHeap) up(i int) int {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.swap(i, parent)
		i = parent
	}
	return i
}

func (h *MinHeap) down(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			return
		}
		smallest := left
		if right := left + 1; right < n && h.less(right, left) {
			smallest = right
		}
		if !h.less(smallest, i) {
			return
		}
		h.swap(i, smallest)
		i = smallest
	}
}
