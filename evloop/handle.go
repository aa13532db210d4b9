package evloop

import "sync/atomic"

// Handle is a scheduled callback record, per the data model: a fire time
// (optional - zero for a pure ready-queue entry), the callable and its
// arguments, and a cancellation flag. Ordering in the TimerHeap is by
// when, then by insertion sequence; seq is assigned to every handle,
// ready-queue-only ones included, from the loop's single counter.
type Handle struct {
	when      float64 // monotonic fire time; zero means "ready now"
	seq       uint64
	fn        func()
	cancelled atomic.Bool
}

// newHandle wraps fn (with args already bound by the caller, matching the
// source's call_soon(fn, *args) signature) into a cancellable record.
func newHandle(when float64, seq uint64, fn func()) *Handle {
	return &Handle{when: when, seq: seq, fn: fn}
}

// Cancel marks the handle as cancelled. The loop skips cancelled handles
// when draining the ready queue or popping the timer heap; it never
// searches either structure to remove them eagerly (invariant 1: a
// cancelled callable is simply never invoked).
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (h *Handle) Cancelled() bool {
	return h.cancelled.Load()
}

func (h *Handle) run() {
	if !h.Cancelled() {
		h.fn()
	}
}
