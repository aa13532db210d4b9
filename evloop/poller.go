package evloop

// IOEvents is a bitmask of readiness conditions reported by the
// multiplexer, per 4.C.
type IOEvents uint32

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
	// EventError indicates an error condition on the file descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// IOCallback is invoked with the readiness mask observed for a registered
// fd. It runs on the loop goroutine, inline from poll, the same as a
// drained ready-queue entry - 4.C requires the loop to dispatch I/O
// readiness through the same protected-call path as timers and CallSoon
// work, so callers see panics handled identically either way.
type IOCallback func(IOEvents)

// multiplexer is the platform-native I/O readiness notifier: register,
// modify, and unregister a file descriptor for a set of events, and
// block in poll until either a registered fd becomes ready or the
// timeout elapses. Linux gets an epoll-backed implementation
// (poller_linux.go), Darwin a kqueue-backed one (poller_darwin.go),
// and every other GOOS a fallback (poller_other.go) that sleeps briefly
// and reports every registered fd as ready, all behind one contract.
type multiplexer interface {
	// register begins monitoring fd for events, invoking cb from poll
	// whenever any requested event is observed.
	register(fd int, events IOEvents, cb IOCallback) error
	// modify changes the event mask for an already-registered fd.
	modify(fd int, events IOEvents) error
	// unregister stops monitoring fd. Callers must still close fd
	// themselves; unregister only removes it from the watch set.
	unregister(fd int) error
	// poll blocks for at most timeout (negative means forever, zero
	// means return immediately) and dispatches ready callbacks inline.
	// It returns the number of fds that reported readiness.
	poll(timeoutMs int) (int, error)
	// close releases the multiplexer's own resources (e.g. the epoll
	// or kqueue fd). Registered fds are not closed.
	close() error
}
