package lifecycle

import (
	"sync/atomic"
	"time"
)

// shutdownSince holds the UnixNano at which draining began, 0 while serving.
var shutdownSince atomic.Int64

// BeginShutdown marks the process as draining. /health reports shutting-down
// from then on. Repeated calls keep the first timestamp.
func BeginShutdown() {
	shutdownSince.CompareAndSwap(0, time.Now().UnixNano())
}

// IsShuttingDown reports whether BeginShutdown has been called.
func IsShuttingDown() bool {
	return shutdownSince.Load() != 0
}

// ShuttingDownSince returns when draining began.
func ShuttingDownSince() (time.Time, bool) {
	ns := shutdownSince.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

// Reset clears the draining flag. For tests only.
func Reset() {
	shutdownSince.Store(0)
}
