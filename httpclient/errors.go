package httpclient

import (
	"errors"

	"github.com/joeycumines/go-evhttp/internal/wireerr"
)

// TooManyRedirectsError is the public, properly-typed counterpart to
// wireerr.TooManyRedirectsError - that type carries its Response field as
// any to avoid an import cycle (wireerr cannot import httpclient); this
// wrapper gives callers a *Response instead of having to type-assert
// themselves (spec 4.G REDIRECT, scenario 3).
type TooManyRedirectsError struct {
	Response *Response
	inner    *wireerr.TooManyRedirectsError
}

func (e *TooManyRedirectsError) Error() string { return e.inner.Error() }

func (e *TooManyRedirectsError) Unwrap() error { return e.inner }

// AsTooManyRedirects reports whether err is (or wraps) a too-many-redirects
// failure, returning the partial response history when so.
func AsTooManyRedirects(err error) (*TooManyRedirectsError, bool) {
	var e *TooManyRedirectsError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Timeout, Connection, Protocol, and HTTP status errors are surfaced
// directly as their internal/wireerr types (TimeoutError, ConnectionError,
// ProtocolError, HTTPError); none of those carry an httpclient-typed field,
// so unlike TooManyRedirectsError they need no wrapper here. Callers match
// them with errors.Is(err, wireerr.ErrTimeout) etc., or errors.As for the
// concrete type.
