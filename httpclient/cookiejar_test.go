package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieJarStoreAndCookiesFor(t *testing.T) {
	jar := NewCookieJar()
	jar.Store("example.com", "sid=abc123; Path=/")

	cookies := jar.CookiesFor("example.com", "/", time.Now())
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, "abc123", cookies[0].Value)
}

func TestCookieJarExpiredCookieNotReturned(t *testing.T) {
	jar := NewCookieJar()
	jar.Store("example.com", "sid=abc123; Max-Age=-1")

	cookies := jar.CookiesFor("example.com", "/", time.Now())
	assert.Empty(t, cookies)
}

func TestCookieJarDomainMatchIncludesSubdomains(t *testing.T) {
	jar := NewCookieJar()
	jar.Store("example.com", "sid=abc123; Domain=example.com; Path=/")

	cookies := jar.CookiesFor("www.example.com", "/", time.Now())
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
}

func TestCookieJarPathScoping(t *testing.T) {
	jar := NewCookieJar()
	jar.Store("example.com", "a=1; Path=/admin")

	assert.Empty(t, jar.CookiesFor("example.com", "/other", time.Now()))
	cookies := jar.CookiesFor("example.com", "/admin/page", time.Now())
	require.Len(t, cookies, 1)
}
