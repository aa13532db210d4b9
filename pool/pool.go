package pool

import (
	"weak"

	"github.com/joeycumines/go-evhttp/evloop"
)

// Conn is the minimal contract a pooled connection must satisfy: close
// its transport, report whether it is still usable (socket open, not
// past its idle deadline), and report how many requests it has
// processed - the "processed" counter section 8's scenario 2
// (processed==7 after six redirects on one connection) and scenario 6
// (sessions==2, processed==2) both depend on.
type Conn interface {
	Close() error
	Valid() bool
	Processed() int
}

// Dialer creates a new connection. Dialing is assumed to block (network
// I/O), so Pool always drives it through the loop's executor rather than
// calling it inline - see Acquire.
type Dialer[C Conn] func() (C, error)

// Pool is a per-origin ConnectionPool (spec 4.F / data model
// "ConnectionPool"), generic over its connection type C and over R, the
// owning client's type - R never needs to be known by this package's
// own logic, only carried as a weak back-reference.
type Pool[C Conn, R any] struct {
	key    Key
	size   int
	dial   Dialer[C]
	loop   *evloop.EventLoop
	logger evloop.Logger

	client weak.Pointer[R]

	available []C                        // LIFO: warmer sockets win
	inUse     map[any]struct{}            // identity set of acquired connections
	waiters   []*evloop.Deferred[C]       // FIFO
	sessions  int                        // count of connections ever dialled
	closed    bool
}

// New constructs a Pool bound to loop for scheduling dials and waiter
// wakeups, and to client as a weak back-reference (see pool doc.go).
func New[C Conn, R any](loop *evloop.EventLoop, logger evloop.Logger, key Key, size int, dial Dialer[C], client *R) *Pool[C, R] {
	p := &Pool[C, R]{
		key:    key,
		size:   size,
		dial:   dial,
		loop:   loop,
		logger: logger,
		inUse:  make(map[any]struct{}),
	}
	if client != nil {
		p.client = weak.Make(client)
	}
	return p
}

// Client resolves the pool's owning client, or the zero value and false
// if it has since been collected.
func (p *Pool[C, R]) Client() (*R, bool) {
	ptr := p.client.Value()
	return ptr, ptr != nil
}

// Key returns the pool's origin key.
func (p *Pool[C, R]) Key() Key { return p.key }

// Sessions returns the number of connections ever dialled by this pool,
// across its whole lifetime (spec 4.J: scenario 6's "sessions==2").
func (p *Pool[C, R]) Sessions() int { return p.sessions }

// Available returns the count of idle, reusable connections currently
// held by the pool.
func (p *Pool[C, R]) Available() int { return len(p.available) }

// Acquire returns a Deferred that resolves with a usable connection: an
// idle one from `available` if any remains valid, a freshly dialled one
// if under capacity, or (once saturated) a connection handed over by a
// future Release - spec 4.F.
func (p *Pool[C, R]) Acquire() *evloop.Deferred[C] {
	if p.closed {
		return evloop.Rejected[C](ErrPoolClosed)
	}

	for len(p.available) > 0 {
		n := len(p.available)
		conn := p.available[n-1]
		p.available = p.available[:n-1]
		if !conn.Valid() {
			// Past idle deadline or socket already closed: discard,
			// keep looking, per spec 4.J's idle-eviction clarification.
			_ = conn.Close()
			continue
		}
		p.markInUse(conn)
		return evloop.Resolved(conn)
	}

	if len(p.inUse)+len(p.available) < p.size {
		return p.dialNew()
	}

	d := evloop.NewDeferred[C]()
	p.waiters = append(p.waiters, d)
	return d
}

func (p *Pool[C, R]) dialNew() *evloop.Deferred[C] {
	out := evloop.NewDeferred[C]()
	p.sessions++
	p.loop.RunInExecutor(func() (any, error) {
		return p.dial()
	}).OnDone(func(v any, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		conn := v.(C)
		p.markInUse(conn)
		out.Resolve(conn)
	})
	return out
}

func (p *Pool[C, R]) markInUse(conn C) {
	p.inUse[connIdentity(conn)] = struct{}{}
}

// Release returns conn to the pool. If reusable and the pool is not over
// capacity, it goes onto `available` (LIFO) and wakes the oldest waiter
// if one is queued; otherwise the connection is closed.
func (p *Pool[C, R]) Release(conn C, reusable bool) {
	delete(p.inUse, connIdentity(conn))

	if p.closed || !reusable || !conn.Valid() {
		_ = conn.Close()
		return
	}

	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.markInUse(conn)
		w.Resolve(conn)
		return
	}

	if len(p.available)+len(p.inUse) >= p.size {
		_ = conn.Close()
		return
	}

	p.available = append(p.available, conn)
}

// CloseAll rejects every pending waiter with ErrPoolClosed and closes
// every idle connection. In-flight (in_use) connections are left for
// their callers to close via a subsequent Release, matching spec 4.F's
// "close every connection" scoped to what the pool itself holds.
func (p *Pool[C, R]) CloseAll() {
	p.closed = true

	waiters := p.waiters
	p.waiters = nil
	for _, w := range waiters {
		w.Reject(ErrPoolClosed)
	}

	for _, conn := range p.available {
		_ = conn.Close()
	}
	p.available = nil
}

// connIdentity gives a comparable map key for a Conn value without
// requiring C itself to be comparable (e.g. a struct holding a mutex):
// callers pass pointer-shaped connection types, so converting through
// any is enough to get pointer identity for the map key.
func connIdentity[C Conn](conn C) any {
	return conn
}
