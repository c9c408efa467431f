package lifecycle

import (
	"fmt"

	"github.com/tetra-robotics/armlink/internal/state"
)

// awaitAck polls the diagnostics snapshot until accept is satisfied, the
// handshake window closes, or the session dies. Only snapshots captured
// after the wait began count; a stale acknowledgement from an earlier
// transition must not satisfy this one. The wait is always bounded: a
// dead session surfaces as ErrDisconnected rather than a hang.
func (h *handle) awaitAck(accept func(state.Diagnostics) bool) error {
	start := h.clock.Monotonic()
	ticker := h.clock.NewTicker(h.handshakePoll)
	defer ticker.Stop()

	for {
		if !h.session.Running() {
			return disconnectedErr(h.session)
		}

		d, ok := h.session.Store().Diagnostics()
		if ok && d.Valid&state.DiagFieldStatus != 0 && d.Captured >= start {
			if d.FaultCode != 0 {
				return fmt.Errorf("%w: fault 0x%04X", ErrHandshakeRejected, d.FaultCode)
			}
			if accept(d) {
				return nil
			}
		}

		if h.clock.Monotonic()-start >= h.handshakeTimeout {
			return ErrHandshakeTimeout
		}
		<-ticker.C()
	}
}
