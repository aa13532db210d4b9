package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joeycumines/go-evhttp/evloop"
	"github.com/joeycumines/go-evhttp/internal/wireerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoop(t *testing.T) *evloop.EventLoop {
	t.Helper()
	loop, err := evloop.New(evloop.WithPollTimeout(10 * time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = loop.Close() })
	return loop
}

// runLoop runs loop in a background goroutine until fn's deferred settles
// (or the timeout elapses), then stops the loop and waits for RunForever to
// return, following evloop/loop_test.go's own testing idiom.
func runLoop[T any](t *testing.T, loop *evloop.EventLoop, d *evloop.Deferred[T]) (T, error) {
	t.Helper()
	type result struct {
		v   T
		err error
	}
	resultCh := make(chan result, 1)
	d.OnDone(func(v T, err error) {
		resultCh <- result{v: v, err: err}
		loop.Stop()
	})

	runErr := make(chan error, 1)
	go func() { runErr <- loop.RunForever() }()

	select {
	case r := <-resultCh:
		require.NoError(t, <-runErr)
		return r.v, r.err
	case <-time.After(5 * time.Second):
		t.Fatal("deferred never settled")
		panic("unreachable")
	}
}

func TestClientHomePageGetAndReuse(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, "hello")
	}))
	defer srv.Close()

	loop := newTestLoop(t)
	client := NewClient(loop, WithPoolSize(2))

	resp, err := runLoop(t, loop, client.Get(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	text, err := resp.Text()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.True(t, resp.Connection.Processed() >= 1)

	assert.True(t, client.poolFor(resp.Request, "").Sessions() >= 1)
}

func TestClientDataRewrittenToQueryStringOnGet(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(200)
	}))
	defer srv.Close()

	loop := newTestLoop(t)
	client := NewClient(loop)

	_, err := runLoop(t, loop, client.Get(srv.URL, Data(map[string]string{"a": "1"})))
	require.NoError(t, err)
	assert.Equal(t, "a=1", gotQuery)
}

func TestClientPostFormBody(t *testing.T) {
	var gotBody, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	loop := newTestLoop(t)
	client := NewClient(loop)

	_, err := runLoop(t, loop, client.Post(srv.URL, Data(map[string]string{"name": "gopher"})))
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "name=gopher", gotBody)
}

func TestClientFollowsRedirectsAndTracksHistory(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/next", http.StatusFound)
	})
	mux.HandleFunc("/next", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "done")
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	loop := newTestLoop(t)
	client := NewClient(loop)

	resp, err := runLoop(t, loop, client.Get(srv.URL+"/start"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	require.Len(t, resp.History, 1)
	assert.Equal(t, 302, resp.History[0].StatusCode)
}

func TestClientTooManyRedirectsCarriesPartialHistory(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	loop := newTestLoop(t)
	client := NewClient(loop, WithMaxRedirects(2))

	_, err := runLoop(t, loop, client.Get(srv.URL+"/loop"))
	require.Error(t, err)
	tmr, ok := AsTooManyRedirects(err)
	require.True(t, ok)
	assert.Len(t, tmr.Response.History, 2)
}

func TestClientBasicAuthRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.Header().Set("WWW-Authenticate", `Basic realm="test"`)
			w.WriteHeader(401)
			return
		}
		fmt.Fprint(w, "welcome")
	}))
	defer srv.Close()

	loop := newTestLoop(t)
	client := NewClient(loop)
	client.AddBasicAuthentication("alice", "secret")

	resp, err := runLoop(t, loop, client.Get(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClientCookieJarRoundTrip(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("/set", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc123"})
		w.WriteHeader(200)
	})
	var gotCookie string
	mux.HandleFunc("/read", func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		w.WriteHeader(200)
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	loop := newTestLoop(t)
	client := NewClient(loop)

	_, err := runLoop(t, loop, client.Get(srv.URL+"/set"))
	require.NoError(t, err)
	_, err = runLoop(t, loop, client.Get(srv.URL+"/read"))
	require.NoError(t, err)
	assert.Contains(t, gotCookie, "sid=abc123")
}

func TestClientCookieJarSkipsOnlyExactNameCollision(t *testing.T) {
	var mux http.ServeMux
	mux.HandleFunc("/set", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "fromjar"})
		w.WriteHeader(200)
	})
	var gotCookie string
	mux.HandleFunc("/read", func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		w.WriteHeader(200)
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	loop := newTestLoop(t)
	client := NewClient(loop)

	_, err := runLoop(t, loop, client.Get(srv.URL+"/set"))
	require.NoError(t, err)

	// A per-request cookie whose name ("anothersession") is a substring
	// superset of the jar's "session" cookie must not hide the jar cookie.
	_, err = runLoop(t, loop, client.Get(srv.URL+"/read", RequestCookies(map[string]string{"anothersession": "2"})))
	require.NoError(t, err)
	assert.Contains(t, gotCookie, "session=fromjar")
	assert.Contains(t, gotCookie, "anothersession=2")
}

func TestClientRaiseForStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	loop := newTestLoop(t)
	client := NewClient(loop)

	resp, err := runLoop(t, loop, client.Get(srv.URL))
	require.NoError(t, err)
	herr := resp.RaiseForStatus()
	require.Error(t, herr)
	var httpErr *wireerr.HTTPError
	require.ErrorAs(t, herr, &httpErr)
	assert.Equal(t, 500, httpErr.StatusCode)
}

func TestClientHeadHasNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		if r.Method != "HEAD" {
			fmt.Fprint(w, "hello")
		}
	}))
	defer srv.Close()

	loop := newTestLoop(t)
	client := NewClient(loop)

	resp, err := runLoop(t, loop, client.Head(srv.URL))
	require.NoError(t, err)
	text, err := resp.Text()
	require.NoError(t, err)
	assert.Empty(t, text)
}
