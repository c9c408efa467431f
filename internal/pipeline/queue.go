// Package pipeline implements the concurrent frame pipeline: the RX and
// TX loops, the frame-group commit protocol, bounded hook fan-out and the
// connection monitor, tied together by a Session.
package pipeline

import (
	"errors"
	"sync/atomic"

	"github.com/tetra-robotics/armlink/internal/bus"
)

// ErrQueueFull reports that the reliable command queue is at capacity.
// The command was not accepted; the caller may retry.
var ErrQueueFull = errors.New("pipeline: command queue full")

// targetSlot is the "latest wins" hand-off for continuous control
// setpoints. A new target simply replaces the previous one; the TX loop
// sends whatever is current when it gets to it. Both sides are
// non-blocking.
type targetSlot struct {
	slot atomic.Pointer[bus.Frame]
}

func (t *targetSlot) put(f bus.Frame) {
	t.slot.Store(&f)
}

// take removes and returns the pending target, if any.
func (t *targetSlot) take() (bus.Frame, bool) {
	p := t.slot.Swap(nil)
	if p == nil {
		return bus.Frame{}, false
	}
	return *p, true
}

// outgoing is the cross-loop hand-off from the application to the TX
// loop: a latest-wins slot for streamed targets plus a bounded reliable
// queue for one-shot commands. Producers never block; the TX loop parks
// on wake only when both are empty.
type outgoing struct {
	target   targetSlot
	commands chan bus.Frame
	wake     chan struct{}
}

func newOutgoing(commandCapacity int) *outgoing {
	return &outgoing{
		commands: make(chan bus.Frame, commandCapacity),
		wake:     make(chan struct{}, 1),
	}
}

// pushCommand enqueues a one-shot command, failing with ErrQueueFull
// rather than blocking.
func (o *outgoing) pushCommand(f bus.Frame) error {
	select {
	case o.commands <- f:
		o.signal()
		return nil
	default:
		return ErrQueueFull
	}
}

// setTarget replaces the pending continuous-control target.
func (o *outgoing) setTarget(f bus.Frame) {
	o.target.put(f)
	o.signal()
}

// take returns the next frame to transmit. The target slot drains first
// so a fresh setpoint is never stuck behind queued commands.
func (o *outgoing) take() (bus.Frame, bool) {
	if f, ok := o.target.take(); ok {
		return f, true
	}
	select {
	case f := <-o.commands:
		return f, true
	default:
		return bus.Frame{}, false
	}
}

func (o *outgoing) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}
