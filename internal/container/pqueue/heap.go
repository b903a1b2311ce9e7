package pqueue

// Slot 0 of the backing slice is never used, so for a live slot i its
// parent is i/2 and its children are 2i and 2i+1.

func parent(i int) int { return i / 2 }
func left(i int) int   { return 2 * i }
func right(i int) int  { return 2*i + 1 }

func (q *Queue[T]) swap(i, j int) {
	q.slots[i], q.slots[j] = q.slots[j], q.slots[i]
}

// siftUp moves slot i towards the root while it outranks its parent.
func (q *Queue[T]) siftUp(i int) {
	for i > 1 && q.priority(q.slots[i]) > q.priority(q.slots[parent(i)]) {
		q.swap(i, parent(i))
		i = parent(i)
	}
}

// siftDown moves slot i towards the leaves, swapping with the higher
// priority child while that child outranks it.
func (q *Queue[T]) siftDown(i int) {
	n := q.Len()
	for {
		largest := i
		if l := left(i); l <= n && q.priority(q.slots[l]) > q.priority(q.slots[largest]) {
			largest = l
		}
		if r := right(i); r <= n && q.priority(q.slots[r]) > q.priority(q.slots[largest]) {
			largest = r
		}
		if largest == i {
			return
		}
		q.swap(i, largest)
		i = largest
	}
}
