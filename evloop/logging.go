package evloop

import (
	"fmt"
	"io"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the sink every EventLoop and, transitively, every HttpClient
// logs through. It is the concrete logiface logger parameterized over
// stumpy's JSON event, which is the "model" logiface backend - see
// github.com/joeycumines/stumpy.
type Logger = *logiface.Logger[*stumpy.Event]

// NewLogger builds the default structured logger, writing newline-delimited
// JSON to the given writer. Passing a nil writer discards all output.
func NewLogger(w io.Writer) Logger {
	if w == nil {
		return stumpy.L.New(stumpy.L.WithLevel(logiface.LevelDisabled))
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(logiface.LevelDebug),
	)
}

// logException records a callback panic or returned error without letting
// it escape the tick loop, matching the Python source's "log via injected
// logger, don't crash the loop" behavior for both loop callbacks and the
// HTTP client's pre_request/on_headers hooks.
func logException(logger Logger, where string, recovered any) {
	if logger == nil {
		return
	}
	b := logger.Err()
	if !b.Enabled() {
		return
	}
	switch v := recovered.(type) {
	case error:
		b = b.Err(v)
	default:
		b = b.Str("panic", fmt.Sprint(v))
	}
	b.Log(where)
}

func logError(logger Logger, where string, err error) {
	if logger == nil || err == nil {
		return
	}
	if b := logger.Err(); b.Enabled() {
		b.Err(err).Log(where)
	}
}
