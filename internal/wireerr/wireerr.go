// Package wireerr defines the error taxonomy shared by the connection
// pool and the HTTP client pipeline (spec section 7): Timeout,
// ConnectionError, ProtocolError, TooManyRedirects, and HTTPError. Each
// wraps an underlying cause where one exists, following the teacher's
// sentinel-plus-wrap style (evloop/errors.go) rather than panic-based or
// integer-code error handling.
package wireerr

import (
	"errors"
	"fmt"
)

// Sentinel errors usable with errors.Is against a wrapped cause.
var (
	ErrTimeout    = errors.New("wireerr: timeout")
	ErrConnection = errors.New("wireerr: connection error")
	ErrProtocol   = errors.New("wireerr: protocol error")
)

// TimeoutError reports that a request-level or connection-level deadline
// elapsed before completion.
type TimeoutError struct {
	Op  string
	err error
}

func Timeout(op string, cause error) *TimeoutError {
	return &TimeoutError{Op: op, err: cause}
}

func (e *TimeoutError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("wireerr: timeout during %s: %v", e.Op, e.err)
	}
	return fmt.Sprintf("wireerr: timeout during %s", e.Op)
}

func (e *TimeoutError) Unwrap() error { return e.err }
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// ConnectionError reports a dial failure, reset, or unexpected peer
// close.
type ConnectionError struct {
	Op  string
	err error
}

func Connection(op string, cause error) *ConnectionError {
	return &ConnectionError{Op: op, err: cause}
}

func (e *ConnectionError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("wireerr: connection error during %s: %v", e.Op, e.err)
	}
	return fmt.Sprintf("wireerr: connection error during %s", e.Op)
}

func (e *ConnectionError) Unwrap() error      { return e.err }
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// ProtocolError reports malformed wire data: a bad status line, header,
// or chunk-size line.
type ProtocolError struct {
	Reason string
	err    error
}

func Protocol(reason string, cause error) *ProtocolError {
	return &ProtocolError{Reason: reason, err: cause}
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wireerr: protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error      { return e.err }
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// TooManyRedirectsError is raised at the redirect decision point once
// redirect_count would exceed max_redirects; Response exposes the
// partial chain accumulated so far (spec 4.G REDIRECT, scenario 3).
type TooManyRedirectsError struct {
	Response any // *httpclient.Response; any here avoids an import cycle
}

func (e *TooManyRedirectsError) Error() string {
	return "wireerr: too many redirects"
}

// HTTPError is the explicit opt-in error from Response.RaiseForStatus
// when the status code falls outside [200,400).
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("wireerr: http error: %s", e.Status)
}
