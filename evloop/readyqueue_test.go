package evloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadyQueueDrainTickRunsExactlySnapshotted(t *testing.T) {
	var q readyQueue
	var ran []int

	for i := 0; i < 3; i++ {
		i := i
		q.append(newHandle(0, uint64(i), func() { ran = append(ran, i) }))
	}

	// A callback scheduling more work mid-drain must not run this tick.
	q.items[0].fn = func() {
		ran = append(ran, 0)
		q.append(newHandle(0, 99, func() { ran = append(ran, 99) }))
	}

	runDue(q.snapshotDue(3), nil)

	assert.Equal(t, []int{0, 1, 2}, ran)
	assert.Equal(t, 1, q.len())
}

func TestReadyQueueDrainTickRecoversPanics(t *testing.T) {
	var q readyQueue
	ran := false
	q.append(newHandle(0, 0, func() { panic("boom") }))
	q.append(newHandle(0, 1, func() { ran = true }))

	assert.NotPanics(t, func() {
		runDue(q.snapshotDue(2), nil)
	})
	assert.True(t, ran)
}

func TestReadyQueueDrainTickSkipsCancelled(t *testing.T) {
	var q readyQueue
	ran := false
	h := newHandle(0, 0, func() { ran = true })
	h.Cancel()
	q.append(h)

	runDue(q.snapshotDue(1), nil)

	assert.False(t, ran)
}
