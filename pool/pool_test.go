package pool

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-evhttp/evloop"
)

type fakeConn struct {
	id        int
	closed    bool
	valid     bool
	processed int
}

func (c *fakeConn) Close() error    { c.closed = true; return nil }
func (c *fakeConn) Valid() bool     { return c.valid && !c.closed }
func (c *fakeConn) Processed() int  { return c.processed }

type fakeClient struct{ name string }

func newTestLoop(t *testing.T) *evloop.EventLoop {
	t.Helper()
	loop, err := evloop.New(evloop.WithPollTimeout(10 * time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = loop.Close() })
	return loop
}

func runLoopUntil(t *testing.T, loop *evloop.EventLoop, done <-chan struct{}) {
	t.Helper()
	go func() { _ = loop.RunForever() }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for loop work")
	}
	loop.Stop()
}

func TestPoolAcquireDialsUnderCapacity(t *testing.T) {
	loop := newTestLoop(t)
	client := &fakeClient{name: "c"}
	next := 0
	dial := func() (*fakeConn, error) {
		next++
		return &fakeConn{id: next, valid: true}, nil
	}
	p := New[*fakeConn](loop, nil, Key{Scheme: "http", Host: "example"}, 2, dial, client)

	done := make(chan struct{})
	var got *fakeConn
	d := p.Acquire()
	d.OnDone(func(c *fakeConn, err error) {
		got = c
		close(done)
	})

	runLoopUntil(t, loop, done)

	require.NotNil(t, got)
	assert.Equal(t, 1, got.id)
	assert.Equal(t, 1, p.Sessions())
}

func TestPoolReleaseReusableGoesToAvailableLIFO(t *testing.T) {
	loop := newTestLoop(t)
	client := &fakeClient{}
	dial := func() (*fakeConn, error) { return &fakeConn{valid: true}, nil }
	p := New[*fakeConn](loop, nil, Key{}, 4, dial, client)

	a := &fakeConn{id: 1, valid: true}
	b := &fakeConn{id: 2, valid: true}
	p.markInUse(a)
	p.markInUse(b)

	p.Release(a, true)
	p.Release(b, true)

	assert.Equal(t, 2, p.Available())

	got := p.Acquire()
	v, err := got.Result()
	require.NoError(t, err)
	assert.Equal(t, 2, v.id, "LIFO: most recently released connection wins")
}

func TestPoolReleaseNonReusableCloses(t *testing.T) {
	loop := newTestLoop(t)
	client := &fakeClient{}
	dial := func() (*fakeConn, error) { return &fakeConn{valid: true}, nil }
	p := New[*fakeConn](loop, nil, Key{}, 4, dial, client)

	conn := &fakeConn{valid: true}
	p.markInUse(conn)
	p.Release(conn, false)

	assert.True(t, conn.closed)
	assert.Equal(t, 0, p.Available())
}

func TestPoolAcquireDiscardsInvalidIdleConnection(t *testing.T) {
	loop := newTestLoop(t)
	client := &fakeClient{}
	redialed := false
	dial := func() (*fakeConn, error) {
		redialed = true
		return &fakeConn{id: 99, valid: true}, nil
	}
	p := New[*fakeConn](loop, nil, Key{}, 4, dial, client)
	p.available = append(p.available, &fakeConn{id: 1, valid: false})

	done := make(chan struct{})
	var got *fakeConn
	p.Acquire().OnDone(func(c *fakeConn, err error) {
		got = c
		close(done)
	})
	runLoopUntil(t, loop, done)

	require.NotNil(t, got)
	assert.True(t, redialed)
	assert.Equal(t, 99, got.id)
}

func TestPoolAcquireQueuesWaiterWhenSaturated(t *testing.T) {
	loop := newTestLoop(t)
	client := &fakeClient{}
	dial := func() (*fakeConn, error) { return &fakeConn{valid: true}, nil }
	p := New[*fakeConn](loop, nil, Key{}, 1, dial, client)

	first := &fakeConn{id: 1, valid: true}
	p.markInUse(first)

	waiterResolved := make(chan *fakeConn, 1)
	p.Acquire().OnDone(func(c *fakeConn, err error) {
		require.NoError(t, err)
		waiterResolved <- c
	})

	assert.Len(t, p.waiters, 1)

	p.Release(first, true)

	select {
	case c := <-waiterResolved:
		assert.Same(t, first, c)
	default:
		t.Fatal("waiter should resolve synchronously on Release")
	}
}

func TestPoolCloseAllRejectsWaitersAndClosesIdle(t *testing.T) {
	loop := newTestLoop(t)
	client := &fakeClient{}
	dial := func() (*fakeConn, error) { return &fakeConn{valid: true}, nil }
	p := New[*fakeConn](loop, nil, Key{}, 1, dial, client)

	p.markInUse(&fakeConn{valid: true})
	var waitErr error
	p.Acquire().OnDone(func(_ *fakeConn, err error) { waitErr = err })

	idle := &fakeConn{id: 2, valid: true}
	p.available = append(p.available, idle)

	p.CloseAll()

	assert.True(t, errors.Is(waitErr, ErrPoolClosed))
	assert.True(t, idle.closed)

	_, err := p.Acquire().Result()
	assert.True(t, errors.Is(err, ErrPoolClosed))
}

func TestPoolClientWeakBackReference(t *testing.T) {
	loop := newTestLoop(t)
	client := &fakeClient{name: "owner"}
	dial := func() (*fakeConn, error) { return &fakeConn{valid: true}, nil }
	p := New[*fakeConn](loop, nil, Key{}, 1, dial, client)

	got, ok := p.Client()
	require.True(t, ok)
	assert.Equal(t, "owner", got.name)
}
