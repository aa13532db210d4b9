package evloop

import "time"

// LoopingCall repeatedly invokes callback on the owning EventLoop, either
// as soon as possible (interval <= 0) or no sooner than interval after
// the previous invocation finished, grounded directly on the source's
// LoopingCall: the callback fires, and if it returns a *Deferred, rearm
// is paused until that Deferred settles. On success the next invocation
// is scheduled; on error the error is logged and the LoopingCall cancels
// itself - matching `_might_continue` in the original, which only calls
// `_continue` from the Future's completion callback.
type LoopingCall struct {
	loop     *EventLoop
	callback func() *Deferred[any]
	interval time.Duration

	cancelled bool
	handle    *Handle
}

// StartLoopingCall schedules callback to run repeatedly on loop. If
// callback has no async result to wait on, it should return nil; a
// returned non-nil Deferred pauses rearm until it settles. interval <= 0
// means "reschedule via CallSoon", i.e. run again as soon as the loop is
// free, the same as the source's `interval or 0` falsy-interval case.
func StartLoopingCall(loop *EventLoop, interval time.Duration, callback func() *Deferred[any]) *LoopingCall {
	lc := &LoopingCall{loop: loop, callback: callback, interval: interval}
	lc.arm()
	return lc
}

func (lc *LoopingCall) arm() {
	if lc.interval > 0 {
		lc.handle = lc.loop.CallLater(lc.interval, lc.fire)
	} else {
		lc.handle = lc.loop.CallSoon(lc.fire)
	}
}

// Cancel stops future invocations. An invocation already in flight (or
// awaiting a pending Deferred) is not interrupted, but it will not
// rearm.
func (lc *LoopingCall) Cancel() {
	lc.cancelled = true
	if lc.handle != nil {
		lc.handle.Cancel()
	}
}

// Cancelled reports whether Cancel has been called.
func (lc *LoopingCall) Cancelled() bool {
	return lc.cancelled
}

func (lc *LoopingCall) fire() {
	d := lc.invoke()
	if d == nil {
		lc.rearm()
		return
	}
	d.OnDone(func(_ any, err error) {
		if err != nil {
			logError(lc.loop.logger, "looping-call", err)
			lc.cancelled = true
			return
		}
		lc.rearm()
	})
}

func (lc *LoopingCall) invoke() (d *Deferred[any]) {
	defer func() {
		if r := recover(); r != nil {
			logException(lc.loop.logger, "looping-call", r)
			lc.cancelled = true
			d = nil
		}
	}()
	return lc.callback()
}

func (lc *LoopingCall) rearm() {
	if lc.cancelled {
		return
	}
	lc.arm()
}
