package traffic

import (
	"sync"
	"time"
)

// retention bounds how long outcomes are kept regardless of the queried window.
const retention = 5 * time.Minute

var defaultWindow = NewWindow(nil)

// RecordSuccess records a completed upstream lookup.
func RecordSuccess() { defaultWindow.Record(false) }

// RecordFailure records an upstream lookup that failed (provider error, timeout, malformed body).
func RecordFailure() { defaultWindow.Record(true) }

// ErrorRate returns (failures, total) within the trailing window.
func ErrorRate(window time.Duration) (failures, total int) {
	return defaultWindow.ErrorRate(window)
}

// Degraded reports whether failures reach pct percent of lookups in the window.
func Degraded(window time.Duration, pct int) bool {
	return defaultWindow.Degraded(window, pct)
}

// Reset clears the process-wide window. For tests only.
func Reset() { defaultWindow.Reset() }

type outcome struct {
	at     time.Time
	failed bool
}

// Window is a sliding record of upstream lookup outcomes, oldest first.
type Window struct {
	mu       sync.Mutex
	now      func() time.Time
	outcomes []outcome
}

// NewWindow returns an empty Window. now defaults to time.Now.
func NewWindow(now func() time.Time) *Window {
	if now == nil {
		now = time.Now
	}
	return &Window{now: now}
}

func (w *Window) Record(failed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	w.outcomes = append(w.outcomes, outcome{at: now, failed: failed})
	w.pruneLocked(now)
}

func (w *Window) ErrorRate(window time.Duration) (failures, total int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := w.now().Add(-window)
	for i := len(w.outcomes) - 1; i >= 0; i-- {
		o := w.outcomes[i]
		if o.at.Before(cutoff) {
			break
		}
		total++
		if o.failed {
			failures++
		}
	}
	return failures, total
}

// Degraded is false when the window is empty or either bound is disabled (<= 0).
func (w *Window) Degraded(window time.Duration, pct int) bool {
	if window <= 0 || pct <= 0 {
		return false
	}
	failures, total := w.ErrorRate(window)
	if total == 0 {
		return false
	}
	return failures*100 >= pct*total
}

func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.outcomes = nil
}

// pruneLocked drops outcomes older than retention. Caller holds mu.
func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for i < len(w.outcomes) && w.outcomes[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.outcomes = append(w.outcomes[:0], w.outcomes[i:]...)
	}
}
