package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/tetra-robotics/armlink/internal/timeutil"
)

// Monitor tracks when the last frame was seen on the bus. All arithmetic
// uses the clock's monotonic reading, so wall-clock adjustments can never
// produce a false stale or fresh answer.
type Monitor struct {
	clock timeutil.Clock
	// Monotonic nanos of the last frame, offset by one so that zero
	// means "never". The monotonic reading itself can legitimately be
	// zero at process start.
	lastSeen atomic.Int64
}

// NewMonitor creates a monitor that has seen no frames yet.
func NewMonitor(clock timeutil.Clock) *Monitor {
	return &Monitor{clock: clock}
}

// MarkFrame records that a frame was just seen.
func (m *Monitor) MarkFrame() {
	m.lastSeen.Store(int64(m.clock.Monotonic()) + 1)
}

// Age returns the time since the last frame. ok is false if no frame has
// ever been seen.
func (m *Monitor) Age() (time.Duration, bool) {
	v := m.lastSeen.Load()
	if v == 0 {
		return 0, false
	}
	return m.clock.Monotonic() - time.Duration(v-1), true
}

// IsFresh reports whether a frame was seen within maxAge.
func (m *Monitor) IsFresh(maxAge time.Duration) bool {
	age, ok := m.Age()
	return ok && age <= maxAge
}
