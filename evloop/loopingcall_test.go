package evloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopingCallRepeatsUntilCancelled(t *testing.T) {
	loop := newTestLoop(t)
	var count int

	var lc *LoopingCall
	lc = StartLoopingCall(loop, 5*time.Millisecond, func() *Deferred[any] {
		count++
		if count >= 3 {
			lc.Cancel()
			loop.Stop()
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- loop.RunForever() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("looping call never stopped the loop")
	}
	assert.Equal(t, 3, count)
}

func TestLoopingCallPausesRearmForPendingDeferred(t *testing.T) {
	loop := newTestLoop(t)
	var invocations int
	pending := NewDeferred[any]()

	StartLoopingCall(loop, 0, func() *Deferred[any] {
		invocations++
		return pending
	})

	loop.CallLater(20*time.Millisecond, func() {
		// Only one invocation should have happened - rearm is paused
		// until pending resolves.
		assert.Equal(t, 1, invocations)
		pending.Resolve(nil)
		loop.CallLater(20*time.Millisecond, loop.Stop)
	})

	done := make(chan error, 1)
	go func() { done <- loop.RunForever() }()

	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, invocations, 2)
}

func TestLoopingCallCancelsOnCallbackError(t *testing.T) {
	loop := newTestLoop(t)
	var invocations int
	failing := NewDeferred[any]()

	lc := StartLoopingCall(loop, 0, func() *Deferred[any] {
		invocations++
		return failing
	})

	loop.CallLater(20*time.Millisecond, func() {
		failing.Reject(assert.AnError)
		loop.CallLater(20*time.Millisecond, loop.Stop)
	})

	done := make(chan error, 1)
	go func() { done <- loop.RunForever() }()
	require.NoError(t, <-done)

	assert.Equal(t, 1, invocations)
	assert.True(t, lc.Cancelled())
}
