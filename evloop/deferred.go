package evloop

// Deferred is a single-assignment result cell: it holds either a value, an
// error, or nothing yet, and carries continuations registered in
// insertion order, run synchronously (at registration time) if the
// Deferred is already resolved, or queued and run in order when Resolve
// or Reject is eventually called - never both, and never more than once.
//
// A Deferred is always driven from the owning EventLoop's goroutine:
// callbacks it invokes run inline, not scheduled via CallSoon, matching
// the source's Future/Deferred semantics where continuation dispatch is
// the caller's responsibility.
type Deferred[T any] struct {
	done  bool
	value T
	err   error
	cbs   []func(T, error)
}

// NewDeferred returns an unresolved Deferred.
func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{}
}

// Resolved returns an already-settled Deferred, for call sites (e.g. a
// ConnectionPool handing back a connection already in `available`) that
// have the answer synchronously but still need to present a Deferred to
// uniform call sites.
func Resolved[T any](value T) *Deferred[T] {
	d := &Deferred[T]{done: true, value: value}
	return d
}

// Rejected returns an already-failed Deferred.
func Rejected[T any](err error) *Deferred[T] {
	d := &Deferred[T]{done: true, err: err}
	return d
}

// Resolve assigns value and fires every registered continuation in
// registration order. Calling Resolve or Reject a second time on the same
// Deferred is a programming error and panics - a Deferred may complete at
// most once.
func (d *Deferred[T]) Resolve(value T) {
	d.settle(value, nil)
}

// Reject assigns err and fires every registered continuation.
func (d *Deferred[T]) Reject(err error) {
	var zero T
	d.settle(zero, err)
}

func (d *Deferred[T]) settle(value T, err error) {
	if d.done {
		panic(ErrDeferredAlreadyResolved)
	}
	d.done = true
	d.value = value
	d.err = err
	cbs := d.cbs
	d.cbs = nil
	for _, cb := range cbs {
		cb(value, err)
	}
}

// OnDone registers a continuation, invoked with the eventual value and
// error. If the Deferred is already resolved, cb runs synchronously,
// before OnDone returns - this is what lets callers write `register, then
// proceed` without racing a concurrently-resolving Deferred, since all
// resolution happens on the single loop goroutine.
func (d *Deferred[T]) OnDone(cb func(T, error)) {
	if d.done {
		cb(d.value, d.err)
		return
	}
	d.cbs = append(d.cbs, cb)
}

// Done reports whether the Deferred has been resolved or rejected.
func (d *Deferred[T]) Done() bool { return d.done }

// Result returns the settled value/error. Calling it before Done is true
// returns the zero value and a nil error, which is almost certainly not
// what the caller wants - prefer OnDone.
func (d *Deferred[T]) Result() (T, error) {
	return d.value, d.err
}
