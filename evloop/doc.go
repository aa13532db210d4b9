// Package evloop implements a single-threaded, cooperative event loop in
// the style of Python's asyncio/Twisted reactor: a monotonic clock and
// timer heap, a fairness-respecting ready queue, a platform-native I/O
// multiplexer (epoll on Linux, kqueue on Darwin, a sleep-based fallback
// elsewhere), and an
// EventLoop that composes the three and exposes thread-safe scheduling to
// callers outside the loop's owning goroutine.
//
// # Architecture
//
// [EventLoop] owns a readyQueue of due callbacks, a timerHeap of scheduled
// ones, and a [multiplexer] used to learn when registered file descriptors
// become readable or writable. Each call to [EventLoop.tick] performs one
// iteration: expired timers move to the ready queue, exactly as many
// callbacks as were ready at that point are drained - work scheduled
// mid-tick runs on the following tick, which is what keeps a flood of
// CallSoon scheduling from starving timers and I/O - and then the
// multiplexer is asked to wait for at most the time until the next timer
// or the configured poll timeout, whichever is sooner (not at all if
// more ready work is already queued).
//
// [Deferred] is a single-assignment result cell that callbacks can chain
// off of; [LoopingCall] schedules a callback repeatedly, pausing the
// rearm while a Deferred it returned is still pending.
//
// # Thread safety
//
// Only [EventLoop.CallAt], [EventLoop.CallLater], [EventLoop.CallSoon],
// [EventLoop.RunInExecutor], and [EventLoop.Stop] are safe to call from a
// goroutine other than the one running the loop. The three Call methods
// take the loop's lock, mutate the heap/queue, and write a byte to a
// self-pipe registered with the multiplexer so a blocked tick wakes up
// immediately; Stop writes to the same self-pipe. Everything else - parser state, connection pools, cookie
// jars - is loop-local and assumes single-threaded access from the loop's
// own goroutine.
//
// # Usage
//
//	loop, err := evloop.New(evloop.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	loop.CallLater(time.Second, func() {
//	    fmt.Println("fired")
//	    loop.Stop()
//	})
//	if err := loop.RunForever(); err != nil {
//	    log.Fatal(err)
//	}
package evloop
