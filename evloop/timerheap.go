package evloop

import "container/heap"

// timerHeap is a min-heap of *Handle ordered by (when, seq), implementing
// container/heap.Interface. Cancelled entries are left in place until they
// reach the top - remove_cancelled_prefix in the source's terms - rather
// than being eagerly spliced out, since a Handle carries no index back
// into the heap.
type timerHeap []*Handle

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(*Handle))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// push schedules a handle onto the heap, maintaining heap order.
func (h *timerHeap) push(handle *Handle) {
	heap.Push(h, handle)
}

// peek returns the earliest non-cancelled handle without removing it, or
// nil if the heap has no pending (non-cancelled) entries. Cancelled
// entries at the top are discarded first, per 4.A.
func (h *timerHeap) peek() *Handle {
	h.dropCancelledPrefix()
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// pop removes and returns the earliest non-cancelled handle.
func (h *timerHeap) pop() *Handle {
	h.dropCancelledPrefix()
	if len(*h) == 0 {
		return nil
	}
	return heap.Pop(h).(*Handle)
}

func (h *timerHeap) dropCancelledPrefix() {
	for len(*h) > 0 && (*h)[0].Cancelled() {
		heap.Pop(h)
	}
}
