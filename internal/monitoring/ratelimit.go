package monitoring

import (
	"sync/atomic"
	"time"
)

// LogLimiter throttles repetitive diagnostics, such as decode errors on a
// noisy bus, to at most one log line per interval. Suppressed events are
// counted so the next permitted line can report how many were skipped.
//
// Allow is safe for concurrent use and never blocks; the caller supplies
// the current monotonic reading so the hot path performs no clock calls
// beyond the one it already made.
type LogLimiter struct {
	interval time.Duration
	// Monotonic nanos of the last permitted event, offset by one so that
	// zero means "never"; the monotonic reading itself can be zero.
	last       atomic.Int64
	suppressed atomic.Uint64
}

// NewLogLimiter creates a limiter permitting one event per interval.
// A zero or negative interval permits every event.
func NewLogLimiter(interval time.Duration) *LogLimiter {
	return &LogLimiter{interval: interval}
}

// Allow reports whether an event at monotonic time now may be logged.
// When it returns true, the second result is the number of events
// suppressed since the previous permitted one.
func (l *LogLimiter) Allow(now time.Duration) (bool, uint64) {
	if l.interval <= 0 {
		return true, 0
	}
	last := l.last.Load()
	if last != 0 && now-time.Duration(last-1) < l.interval {
		l.suppressed.Add(1)
		return false, 0
	}
	// Lost races just mean an extra log line in the same interval.
	if !l.last.CompareAndSwap(last, int64(now)+1) {
		l.suppressed.Add(1)
		return false, 0
	}
	return true, l.suppressed.Swap(0)
}

// Suppressed returns the number of events suppressed since the last
// permitted one.
func (l *LogLimiter) Suppressed() uint64 {
	return l.suppressed.Load()
}
