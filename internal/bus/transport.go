package bus

import (
	"errors"
	"time"
)

// Transport moves frames over the physical link. Receive and Send are the
// only blocking calls in the pipeline hot path, and Receive is always
// bounded by the supplied timeout.
type Transport interface {
	ReceiveEndpoint
	SendEndpoint

	// Close releases the underlying link. Any blocked Receive or Send
	// returns ErrClosed.
	Close() error
}

// ReceiveEndpoint is the receive half of a transport.
type ReceiveEndpoint interface {
	// Receive blocks until a frame arrives or the timeout elapses.
	// A timeout is reported as ErrReceiveTimeout; any error that is not
	// a timeout is fatal to the session (see IsFatal).
	Receive(timeout time.Duration) (Frame, error)
}

// SendEndpoint is the send half of a transport.
type SendEndpoint interface {
	// Send writes one frame to the bus. A nil return means the frame
	// reached the transport; only then may it be reported to observers.
	Send(f Frame) error
}

// Splitter is implemented by transports whose receive and send halves can
// operate independently, letting the RX and TX loops run without sharing
// a lock.
type Splitter interface {
	Split() (ReceiveEndpoint, SendEndpoint)
}

// Split returns independent receive and send endpoints for t, using the
// transport's own Split when available.
func Split(t Transport) (ReceiveEndpoint, SendEndpoint) {
	if s, ok := t.(Splitter); ok {
		return s.Split()
	}
	return t, t
}

var (
	// ErrReceiveTimeout reports that no frame arrived within the poll
	// window. It is the only recoverable receive error.
	ErrReceiveTimeout = errors.New("bus: receive timed out")

	// ErrClosed reports an operation on a closed transport.
	ErrClosed = errors.New("bus: transport closed")

	// ErrPayloadTooLarge reports a frame payload above MaxPayload bytes.
	ErrPayloadTooLarge = errors.New("bus: payload too large")
)

// IsFatal reports whether a transport error must terminate the session.
// Timeouts are recoverable; everything else is not.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrReceiveTimeout)
}
