package evloop

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventLoop is a cooperative, single-threaded event loop: one goroutine
// drains due timers, ready-queue callbacks, and I/O readiness in a tick,
// computes how long it may safely block, and polls the multiplexer for
// that long. It is the composition described by the "EventLoop" section
// of the data model: Clock + TimerHeap + ReadyQueue + multiplexer, plus
// the bookkeeping to let other goroutines schedule work safely.
//
// Only CallSoon, CallLater, CallAt, RunInExecutor, and Stop are safe to
// call from a goroutine other than the one running RunForever. Every
// other method, and every IOCallback/Handle/LoopingCall callback, must
// only be touched from the loop goroutine.
type EventLoop struct {
	clock Clock

	logger      Logger
	pollTimeout time.Duration

	mp       multiplexer
	wake     *selfPipe
	executor *executor

	// mu guards timers/ready/seq, the state shared between the loop
	// goroutine and CallSoon/CallLater/CallAt/Stop called from other
	// goroutines. The loop goroutine itself only takes it to snapshot
	// and drain, never while running a callback.
	mu     sync.Mutex
	timers timerHeap
	ready  readyQueue
	seq    uint64

	state atomicState

	stopped chan struct{}
	once    sync.Once
}

// New constructs an EventLoop. The loop does not start running until
// RunForever is called.
func New(opts ...Option) (*EventLoop, error) {
	cfg := resolveOptions(opts)

	mp, err := newMultiplexer()
	if err != nil {
		return nil, err
	}
	wake, err := newSelfPipe()
	if err != nil {
		_ = mp.close()
		return nil, err
	}

	l := &EventLoop{
		clock:       monotonicNow,
		logger:      cfg.logger,
		pollTimeout: cfg.pollTimeout,
		mp:          mp,
		wake:        wake,
		executor:    newExecutor(cfg.executorWorkers),
		stopped:     make(chan struct{}),
	}

	if err := mp.register(wake.fd(), EventRead, func(IOEvents) {
		wake.drain()
	}); err != nil {
		_ = mp.close()
		_ = wake.close()
		return nil, err
	}

	return l, nil
}

// now returns the loop's monotonic clock reading.
func (l *EventLoop) now() float64 {
	return l.clock()
}

func (l *EventLoop) nextSeq() uint64 {
	return atomic.AddUint64(&l.seq, 1) - 1
}

// CallSoon schedules fn to run on the next tick's ready-queue drain.
// Safe to call from any goroutine.
func (l *EventLoop) CallSoon(fn func()) *Handle {
	l.mu.Lock()
	h := newHandle(0, l.nextSeq(), fn)
	l.ready.append(h)
	l.mu.Unlock()
	l.wake.wake()
	return h
}

// CallLater schedules fn to run once at least delay from now. Safe to
// call from any goroutine.
func (l *EventLoop) CallLater(delay time.Duration, fn func()) *Handle {
	return l.CallAt(l.now()+delay.Seconds(), fn)
}

// CallAt schedules fn to run once the clock reaches when (in the same
// units Clock returns - seconds since the loop's monotonic epoch). Safe
// to call from any goroutine.
func (l *EventLoop) CallAt(when float64, fn func()) *Handle {
	l.mu.Lock()
	h := newHandle(when, l.nextSeq(), fn)
	l.timers.push(h)
	l.mu.Unlock()
	l.wake.wake()
	return h
}

// RunInExecutor runs fn on the loop's worker pool, off the loop
// goroutine, and resolves the returned Deferred with its result back on
// the loop goroutine via CallSoon - the callback registered with OnDone
// always runs on the loop, never on the worker goroutine, matching the
// "thread-safety boundary" invariant that only scheduling entry points
// are safe from foreign goroutines.
func (l *EventLoop) RunInExecutor(fn func() (any, error)) *Deferred[any] {
	d := NewDeferred[any]()
	l.executor.submit(func() {
		value, err := runProtectedResult(l.logger, fn)
		l.CallSoon(func() {
			d.settle(value, err)
		})
	})
	return d
}

func runProtectedResult(logger Logger, fn func() (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logException(logger, "executor-task", r)
			err = panicToError(r)
		}
	}()
	return fn()
}

func panicToError(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return ErrExecutorPanic
}

// RegisterFD begins monitoring fd for events, invoking cb from the loop
// goroutine whenever readiness is observed. A panic in cb is caught and
// logged, the same as for a ready-queue callback.
func (l *EventLoop) RegisterFD(fd int, events IOEvents, cb IOCallback) error {
	return l.mp.register(fd, events, func(ev IOEvents) {
		runProtected(l.logger, "io-callback", func() { cb(ev) })
	})
}

// ModifyFD changes the event mask for an already-registered fd.
func (l *EventLoop) ModifyFD(fd int, events IOEvents) error {
	return l.mp.modify(fd, events)
}

// UnregisterFD stops monitoring fd. The caller remains responsible for
// closing fd itself.
func (l *EventLoop) UnregisterFD(fd int) error {
	return l.mp.unregister(fd)
}

// RunForever drives the loop until Stop is called. It must be called
// from exactly one goroutine at a time; a concurrent or reentrant call
// observes the loop already in stateRunning and returns
// ErrLoopAlreadyRunning.
func (l *EventLoop) RunForever() error {
	if !l.state.tryTransition(stateIdle, stateRunning) {
		return ErrLoopAlreadyRunning
	}
	defer l.state.store(stateIdle)

	for l.state.load() == stateRunning {
		l.tick()
	}
	return nil
}

// tick runs one iteration: move due timers to the ready queue, drain
// exactly the callbacks that were ready at tick start, then poll for I/O
// for no longer than the time remaining until the next timer (or
// pollTimeout, whichever is sooner), per 4.D's tick algorithm.
func (l *EventLoop) tick() {
	now := l.now()

	l.mu.Lock()
	for {
		h := l.timers.peek()
		if h == nil || h.when > now {
			break
		}
		l.timers.pop()
		l.ready.append(h)
	}
	due := l.ready.snapshotDue(l.ready.len())
	var nextWhen float64
	hasNext := false
	if h := l.timers.peek(); h != nil {
		nextWhen = h.when
		hasNext = true
	}
	l.mu.Unlock()

	runDue(due, l.logger)

	timeout := l.pollTimeout
	if hasNext {
		if d := nextWhen - l.now(); d < timeout.Seconds() {
			if d < 0 {
				d = 0
			}
			timeout = time.Duration(d * float64(time.Second))
		}
	}
	l.mu.Lock()
	moreReady := l.ready.len() > 0
	l.mu.Unlock()
	if moreReady {
		// Ready work already waiting (e.g. scheduled by this tick's
		// own callbacks) - don't block, just give the multiplexer a
		// chance to report anything already pending.
		timeout = 0
	}

	if _, err := l.mp.poll(int(timeout.Milliseconds())); err != nil {
		logError(l.logger, "poll", err)
	}
}

// Stop requests the loop to exit after its current tick. Safe to call
// from any goroutine, including the loop's own callbacks. Stopping an
// idle or already-stopped loop leaves its run state unchanged, so a later
// RunForever still runs; every call, that one included, closes the Done
// channel if it is not closed yet.
func (l *EventLoop) Stop() {
	l.state.tryTransition(stateRunning, stateStopping)
	l.once.Do(func() { close(l.stopped) })
	l.wake.wake()
}

// Done returns a channel closed once Stop has been called, letting a
// foreign goroutine select on shutdown having been requested without
// polling - the same "wait for stop" role as the teacher's loopDone
// channel (eventloop/loop.go's Run/Shutdown), narrowed here to signal
// Stop rather than RunForever's actual return.
func (l *EventLoop) Done() <-chan struct{} {
	return l.stopped
}

// Close releases the loop's multiplexer, self-pipe, and executor pool.
// The loop must not be running.
func (l *EventLoop) Close() error {
	l.executor.close()
	err1 := l.mp.close()
	err2 := l.wake.close()
	if err1 != nil {
		return err1
	}
	return err2
}
