package evloop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeferredOnDoneRunsSynchronouslyWhenAlreadyResolved(t *testing.T) {
	d := NewDeferred[int]()
	d.Resolve(42)

	called := false
	d.OnDone(func(v int, err error) {
		called = true
		assert.Equal(t, 42, v)
		assert.NoError(t, err)
	})
	assert.True(t, called)
}

func TestDeferredOnDoneOrderingBeforeResolve(t *testing.T) {
	d := NewDeferred[string]()
	var order []int

	d.OnDone(func(string, error) { order = append(order, 1) })
	d.OnDone(func(string, error) { order = append(order, 2) })
	d.OnDone(func(string, error) { order = append(order, 3) })

	d.Resolve("done")

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDeferredRejectCarriesError(t *testing.T) {
	d := NewDeferred[int]()
	boom := errors.New("boom")
	d.Reject(boom)

	v, err := d.Result()
	assert.Equal(t, 0, v)
	assert.Equal(t, boom, err)
}

func TestDeferredDoubleResolvePanics(t *testing.T) {
	d := NewDeferred[int]()
	d.Resolve(1)
	assert.PanicsWithValue(t, ErrDeferredAlreadyResolved, func() {
		d.Resolve(2)
	})
}

func TestResolvedAndRejectedHelpers(t *testing.T) {
	d := Resolved(7)
	assert.True(t, d.Done())
	v, err := d.Result()
	assert.Equal(t, 7, v)
	assert.NoError(t, err)

	boom := errors.New("boom")
	r := Rejected[int](boom)
	assert.True(t, r.Done())
	_, err = r.Result()
	assert.Equal(t, boom, err)
}
