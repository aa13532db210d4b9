package pool

import "errors"

// ErrPoolClosed is the rejection error for any waiter outstanding when
// CloseAll runs, and for any Acquire call made after.
var ErrPoolClosed = errors.New("pool: closed")
