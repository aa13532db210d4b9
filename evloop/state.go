package evloop

import "sync/atomic"

// loopState is the run state of an EventLoop.
//
//	stateIdle -> stateRunning   [RunForever]
//	stateRunning -> stateStopping [Stop, sticky]
//	stateStopping -> stateIdle  [RunForever returns]
type loopState uint32

const (
	stateIdle loopState = iota
	stateRunning
	stateStopping
)

func (s loopState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// atomicState is a small atomic wrapper, adapted from the source's
// lock-free state machine but stripped of its cache-line padding and CAS
// transition table - a single-threaded loop only ever needs Stop() (called
// from any goroutine) to be observable without a lock.
type atomicState struct {
	v atomic.Uint32
}

func (s *atomicState) load() loopState   { return loopState(s.v.Load()) }
func (s *atomicState) store(v loopState) { s.v.Store(uint32(v)) }

// tryTransition performs a compare-and-swap state transition.
func (s *atomicState) tryTransition(from, to loopState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
