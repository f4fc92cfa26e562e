package simindex

// resultHeap is a bounded max-heap over (distance, row) used to keep the
// k best candidates during a scan. Value-based storage, no allocations
// beyond the backing slice.
//
// Ordering is total: equal distances compare by row so that eviction
// decisions are deterministic.
type resultHeap struct {
	items []Neighbor
}

// worse reports whether a ranks after b (greater distance, ties by
// greater row).
func worse(a, b Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.Row > b.Row
}

func (h *resultHeap) len() int { return len(h.items) }

// top returns the current worst retained candidate.
func (h *resultHeap) top() Neighbor { return h.items[0] }

func (h *resultHeap) push(n Neighbor) {
	h.items = append(h.items, n)
	h.siftUp(len(h.items) - 1)
}

func (h *resultHeap) pop() Neighbor {
	n := len(h.items)
	root := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return root
}

// offer pushes n, evicting the worst candidate once the heap holds k.
func (h *resultHeap) offer(n Neighbor, k int) {
	if len(h.items) < k {
		h.push(n)
		return
	}
	if worse(h.items[0], n) {
		h.items[0] = n
		h.siftDown(0)
	}
}

func (h *resultHeap) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !worse(h.items[i], h.items[p]) {
			return
		}
		h.items[i], h.items[p] = h.items[p], h.items[i]
		i = p
	}
}

func (h *resultHeap) siftDown(i int) {
	n := len(h.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		w := l
		if r := l + 1; r < n && worse(h.items[r], h.items[l]) {
			w = r
		}
		if !worse(h.items[w], h.items[i]) {
			return
		}
		h.items[i], h.items[w] = h.items[w], h.items[i]
		i = w
	}
}
