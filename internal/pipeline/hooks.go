package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tetra-robotics/armlink/internal/bus"
)

// Hooks fans raw frames out to registered observers without ever blocking
// the RX or TX loop. Registration is copy-on-write: dispatch loads the
// current observer slice with a single atomic read, so the per-frame path
// takes no lock. Delivery is try-enqueue; a full queue drops the frame
// and increments the observer's drop counter.
type Hooks struct {
	mu       sync.Mutex // guards registration, never held on dispatch
	set      atomic.Pointer[[]*Hook]
	capacity int
	echo     *echoFilter
}

// NewHooks creates a hook registry whose observers get delivery queues of
// the given capacity. echo may be nil to disable loop-back filtering.
func NewHooks(capacity int, echo *echoFilter) *Hooks {
	h := &Hooks{capacity: capacity, echo: echo}
	empty := []*Hook{}
	h.set.Store(&empty)
	return h
}

// Hook is one observer's registration: a bounded delivery queue plus a
// dropped-frame counter. The registrant owns it and must Close it when
// done. Frames are delivered in per-observer arrival order.
type Hook struct {
	id      uuid.UUID
	owner   *Hooks
	ch      chan bus.Frame
	dropped atomic.Uint64
	once    sync.Once
}

// Register adds an observer and returns its registration.
func (h *Hooks) Register() *Hook {
	hook := &Hook{
		id:    uuid.New(),
		owner: h,
		ch:    make(chan bus.Frame, h.capacity),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	old := *h.set.Load()
	next := make([]*Hook, 0, len(old)+1)
	next = append(next, old...)
	next = append(next, hook)
	h.set.Store(&next)
	return hook
}

func (h *Hooks) unregister(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := *h.set.Load()
	next := make([]*Hook, 0, len(old))
	for _, hook := range old {
		if hook.id != id {
			next = append(next, hook)
		}
	}
	h.set.Store(&next)
}

// CloseAll detaches every observer. Their Frames channels stay open but
// receive nothing further.
func (h *Hooks) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	empty := []*Hook{}
	h.set.Store(&empty)
}

// DispatchReceived delivers a received frame to observers unless it is a
// loop-back echo of a recent transmission.
func (h *Hooks) DispatchReceived(f bus.Frame, now time.Duration) {
	if h.echo != nil && h.echo.isEcho(f.ID, now) {
		return
	}
	h.dispatch(f)
}

// DispatchSent records a confirmed transmission in the echo filter and
// delivers the frame to observers. It must only be called after the
// transport accepted the frame; a frame that never reached the bus is
// never shown to observers.
func (h *Hooks) DispatchSent(f bus.Frame, now time.Duration) {
	if h.echo != nil {
		h.echo.recordSent(f.ID, now)
	}
	h.dispatch(f)
}

func (h *Hooks) dispatch(f bus.Frame) {
	for _, hook := range *h.set.Load() {
		select {
		case hook.ch <- f:
		default:
			hook.dropped.Add(1)
		}
	}
}

// Frames returns the observer's delivery channel. The channel is never
// closed; after Close it simply stops receiving.
func (k *Hook) Frames() <-chan bus.Frame {
	return k.ch
}

// Dropped returns how many frames were discarded because the delivery
// queue was full.
func (k *Hook) Dropped() uint64 {
	return k.dropped.Load()
}

// Close releases the registration. Safe to call more than once.
func (k *Hook) Close() {
	k.once.Do(func() {
		k.owner.unregister(k.id)
	})
}
