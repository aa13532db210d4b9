package httpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadersSetOverwritesPriorValue(t *testing.T) {
	h := NewHeaders(ClientHeaders)
	h.Set("Content-Type", "text/plain")
	h.Set("Content-Type", "application/json")

	v, ok := h.Get("Content-Type")
	assert.True(t, ok)
	assert.Equal(t, "application/json", v)
	assert.Len(t, h.Values("Content-Type"), 1)
}

func TestHeadersAddPreservesRepeatedValues(t *testing.T) {
	h := NewHeaders(ServerHeaders)
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")

	assert.Equal(t, []string{"a=1", "b=2"}, h.Values("Set-Cookie"))
}

func TestHeadersHasIsCaseInsensitive(t *testing.T) {
	h := NewHeaders(ClientHeaders)
	h.Set("X-Custom", "value")

	assert.True(t, h.Has("x-custom"))
	assert.True(t, h.Has("X-CUSTOM", "value"))
	assert.False(t, h.Has("X-CUSTOM", "other"))
}

func TestHeadersCloneIsIndependent(t *testing.T) {
	h := NewHeaders(ClientHeaders)
	h.Set("A", "1")
	clone := h.Clone()
	clone.Set("A", "2")

	v, _ := h.Get("A")
	cv, _ := clone.Get("A")
	assert.Equal(t, "1", v)
	assert.Equal(t, "2", cv)
}

func TestHeadersRemoveDeletesAllEntriesForName(t *testing.T) {
	h := NewHeaders(ServerHeaders)
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")
	h.Remove("Set-Cookie")

	assert.False(t, h.Has("Set-Cookie"))
}
