package evloop

// readyQueue is a FIFO of due callbacks. snapshotDue takes the current
// length at tick start and removes exactly that many entries for runDue to
// execute, so callbacks scheduled by a running callback (the common case:
// a LoopingCall rescheduling itself, or a Deferred continuation scheduling
// more work) are deferred to the next tick rather than executed
// immediately - this is the fairness guarantee from 4.B.
type readyQueue struct {
	items []*Handle
}

func (q *readyQueue) append(h *Handle) {
	q.items = append(q.items, h)
}

func (q *readyQueue) len() int { return len(q.items) }

// snapshotDue removes and returns up to n handles (the length observed at
// tick start), compacting the backing slice. Must be called with the
// loop's mu held, since CallSoon appends to the same backing slice from
// other goroutines.
func (q *readyQueue) snapshotDue(n int) []*Handle {
	if n > len(q.items) {
		n = len(q.items)
	}
	due := q.items[:n:n]
	q.items = q.items[n:]
	return due
}

// runDue invokes each handle in due, catching and logging panics. Safe to
// call without holding the loop's mu, since due is a private snapshot no
// other goroutine can reach.
func runDue(due []*Handle, logger Logger) {
	for _, h := range due {
		runProtected(logger, "ready-callback", h.run)
	}
}

// runProtected invokes fn, catching and logging any panic so a misbehaving
// callback cannot terminate the loop - 4.D: "exceptions raised by
// callbacks are caught, logged ... and do not terminate the loop."
func runProtected(logger Logger, where string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logException(logger, where, r)
		}
	}()
	fn()
}
