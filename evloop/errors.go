package evloop

import "errors"

// Standard errors returned by EventLoop and its collaborators.
var (
	// ErrLoopAlreadyRunning is returned by RunForever when the loop is
	// already running, whether on another goroutine or reentrantly from
	// one of the loop's own callbacks.
	ErrLoopAlreadyRunning = errors.New("evloop: loop is already running")

	// ErrReentrantRun names a RunForever call made from within a callback
	// executing on the loop's own goroutine. RunForever does not return
	// it: such a call gets ErrLoopAlreadyRunning.
	ErrReentrantRun = errors.New("evloop: cannot call RunForever from within the loop")

	// ErrLoopClosed names scheduling or registering against a loop that
	// has released its multiplexer. No EventLoop method returns it.
	ErrLoopClosed = errors.New("evloop: loop is closed")

	// ErrFDAlreadyRegistered is returned by RegisterFD for a descriptor
	// that already has a registration.
	ErrFDAlreadyRegistered = errors.New("evloop: fd already registered")

	// ErrFDNotRegistered is returned by ModifyFD/UnregisterFD for a
	// descriptor with no active registration.
	ErrFDNotRegistered = errors.New("evloop: fd not registered")

	// ErrDeferredAlreadyResolved is the value Deferred.Resolve/Reject
	// panic with when the cell has already been assigned a value or error.
	ErrDeferredAlreadyResolved = errors.New("evloop: deferred already resolved")

	// ErrExecutorPanic is used as the rejection error for a RunInExecutor
	// task that panicked with a non-error value.
	ErrExecutorPanic = errors.New("evloop: executor task panicked")
)
