package evloop

import "time"

// Clock returns seconds since an arbitrary, monotonic epoch - callers must
// never treat the return value as wall-clock time, only as a basis for
// relative comparisons and deadlines, matching the source's time() helper.
type Clock func() float64

// processStart anchors monotonicNow; time.Since retains the runtime's
// monotonic clock reading, so this is immune to wall-clock adjustments
// (NTP, user changes) even though it is seeded from time.Now.
var processStart = time.Now()

// monotonicNow is the default Clock.
func monotonicNow() float64 {
	return time.Since(processStart).Seconds()
}
