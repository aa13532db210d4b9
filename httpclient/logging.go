package httpclient

import (
	"fmt"

	"github.com/joeycumines/go-evhttp/evloop"
)

// logExceptionFromClient and logError mirror evloop's unexported
// logException/logError (evloop/logging.go) for this package's own
// hook-panic and error reporting - hooks (pre_request, on_headers) and
// digest-auth failures are caught here, not in evloop, so they need
// their own copy of the same "log, don't propagate" helper rather than
// reaching into evloop's unexported internals.
func logExceptionFromClient(logger evloop.Logger, where string, recovered any) {
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

func logError(logger evloop.Logger, where string, err error) {
	if logger == nil || err == nil {
		return
	}
	if b := logger.Err(); b.Enabled() {
		b.Err(err).Log(where)
	}
}
