package evloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleCancelPreventsRun(t *testing.T) {
	ran := false
	h := newHandle(0, 0, func() { ran = true })

	h.Cancel()
	h.run()

	assert.False(t, ran)
	assert.True(t, h.Cancelled())
}

func TestHandleRunsWhenNotCancelled(t *testing.T) {
	ran := false
	h := newHandle(0, 0, func() { ran = true })

	h.run()

	assert.True(t, ran)
}
