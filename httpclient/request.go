package httpclient

import (
	"net/url"
	"strconv"

	"github.com/joeycumines/go-evhttp/pool"
)

// Version selects HTTP/1.0 vs HTTP/1.1 wire semantics (spec 4.G "version"
// option).
type Version int

const (
	HTTP10 Version = iota
	HTTP11
)

func (v Version) String() string {
	if v == HTTP10 {
		return "HTTP/1.0"
	}
	return "HTTP/1.1"
}

// Request is the data model's Request: everything needed to write one
// HTTP/1.x request and correctly re-derive follow-up requests for
// redirects and auth retries.
type Request struct {
	Method string
	URL    *url.URL

	Headers             *Headers // sent on every attempt, including redirects
	UnredirectedHeaders *Headers // dropped on cross-origin redirect (e.g. Authorization)

	Body []byte

	RedirectCount int
	MaxRedirects  int

	Version Version

	WaitContinue bool

	PreRequest func(*Request)
	OnHeaders  func(*Response)

	Stream bool

	StoreCookies bool

	// PoolSize, if non-zero, overrides the client default pool capacity
	// for this request's origin (spec 4.G `pool_size` option).
	PoolSize int
	// ProxyInfo, if non-nil, overrides the client default proxy map for
	// this request (spec 4.G `proxy_info` option).
	ProxyInfo ProxyInfo
}

// Key derives the ConnectionPool origin key for this request.
func (r *Request) Key(proxyKey string) pool.Key {
	port := portOf(r.URL)
	return pool.Key{Scheme: r.URL.Scheme, Host: r.URL.Hostname(), Port: port, ProxyKey: proxyKey}
}

func portOf(u *url.URL) int {
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			return n
		}
	}
	if u.Scheme == "https" || u.Scheme == "wss" {
		return 443
	}
	return 80
}

// HasHeader reports whether name is set on either header set.
func (r *Request) HasHeader(name string) bool {
	return r.Headers.Has(name) || r.UnredirectedHeaders.Has(name)
}

// RemoveHeader removes name from both header sets.
func (r *Request) RemoveHeader(name string) {
	r.Headers.Remove(name)
	r.UnredirectedHeaders.Remove(name)
}

// cloneForFollowUp produces the next request in a redirect/auth-retry
// chain: method and URL may differ, Headers are carried forward, and
// UnredirectedHeaders are carried forward too unless dropUnredirected is
// set, in which case they start empty (spec 4.G REDIRECT: "drop
// unredirected_headers").
func (r *Request) cloneForFollowUp(method string, target *url.URL, dropUnredirected bool) *Request {
	next := &Request{
		Method:        method,
		URL:           target,
		Headers:       r.Headers.Clone(),
		RedirectCount: r.RedirectCount,
		MaxRedirects:  r.MaxRedirects,
		Version:       r.Version,
		WaitContinue:  r.WaitContinue,
		PreRequest:    r.PreRequest,
		OnHeaders:     r.OnHeaders,
		Stream:        r.Stream,
		StoreCookies:  r.StoreCookies,
		PoolSize:      r.PoolSize,
		ProxyInfo:     r.ProxyInfo,
	}
	if dropUnredirected {
		next.UnredirectedHeaders = NewHeaders(ClientHeaders)
	} else {
		next.UnredirectedHeaders = r.UnredirectedHeaders.Clone()
	}
	return next
}
