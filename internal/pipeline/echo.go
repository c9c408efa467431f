package pipeline

import (
	"sync/atomic"
	"time"
)

// echoFilter suppresses observer double-delivery when the transport loops
// transmitted frames back onto the receive path. The TX loop records each
// confirmed send; a received frame whose id matches a recent send within
// the window is withheld from observers (it still feeds the commit
// protocol, which ignores command ids anyway).
//
// Entries pack (id, send time in monotonic milliseconds) into one uint64
// so the RX loop can scan the ring without taking a lock. Identifier 0 is
// reserved as the empty-slot marker; no real bus id is 0.
type echoFilter struct {
	window time.Duration
	next   atomic.Uint32
	ring   []atomic.Uint64
}

func newEchoFilter(size int, window time.Duration) *echoFilter {
	if size <= 0 {
		size = 1
	}
	return &echoFilter{
		window: window,
		ring:   make([]atomic.Uint64, size),
	}
}

func packEcho(id uint32, now time.Duration) uint64 {
	return uint64(id)<<32 | uint64(uint32(now/time.Millisecond))
}

// recordSent notes a confirmed transmission at monotonic time now.
func (e *echoFilter) recordSent(id uint32, now time.Duration) {
	if e.window <= 0 {
		return
	}
	slot := e.next.Add(1) % uint32(len(e.ring))
	e.ring[slot].Store(packEcho(id, now))
}

// isEcho reports whether a frame received at monotonic time now matches a
// recent transmission.
func (e *echoFilter) isEcho(id uint32, now time.Duration) bool {
	if e.window <= 0 {
		return false
	}
	nowMS := uint32(now / time.Millisecond)
	windowMS := uint32((e.window + time.Millisecond - 1) / time.Millisecond)
	for i := range e.ring {
		v := e.ring[i].Load()
		if v == 0 || uint32(v>>32) != id {
			continue
		}
		// Unsigned subtraction handles millisecond counter wrap.
		if nowMS-uint32(v) <= windowMS {
			return true
		}
	}
	return false
}
