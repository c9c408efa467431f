package serialbus

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/tetra-robotics/armlink/internal/bus"
	"github.com/tetra-robotics/armlink/internal/timeutil"
)

// ErrWriteFailed reports a short write to the serial port.
var ErrWriteFailed = fmt.Errorf("serialbus: short write to serial port")

// Port is the minimal serial-port surface the transport needs. It matches
// go.bug.st/serial.Port so a real port drops straight in, and lets tests
// substitute an in-memory implementation.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Transport frames bus traffic over a serial port. The receive half (the
// read buffer and record scanner) is owned by whoever calls Receive, in
// practice the RX loop alone. Send serialises concurrent writers with a
// mutex, which only the TX loop touches in steady state.
type Transport struct {
	port  Port
	clock timeutil.Clock

	// Receive-side scratch, single-caller by contract.
	rbuf        []byte
	readChunk   []byte
	lastTimeout time.Duration

	writeMu sync.Mutex
	wbuf    []byte

	closeMu sync.Mutex
	closed  bool
}

// Open opens a serial port and wraps it as a frame transport.
func Open(path string, opts PortOptions) (*Transport, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("serialbus: open %s: %w", path, err)
	}
	return NewTransport(port, timeutil.RealClock{}), nil
}

// NewTransport wraps an already-open port. A nil clock uses the real
// clock.
func NewTransport(port Port, clock timeutil.Clock) *Transport {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Transport{
		port:      port,
		clock:     clock,
		readChunk: make([]byte, 4*maxRecordSize),
	}
}

// Receive returns the next frame on the wire, waiting at most timeout.
// Corrupt bytes are skipped; only a whole, checksummed record yields a
// frame. Frames are stamped with the monotonic clock on arrival.
func (t *Transport) Receive(timeout time.Duration) (bus.Frame, error) {
	if t.isClosed() {
		return bus.Frame{}, bus.ErrClosed
	}

	if f, ok := t.takeBuffered(); ok {
		return f, nil
	}

	if timeout != t.lastTimeout {
		if err := t.port.SetReadTimeout(timeout); err != nil {
			return bus.Frame{}, fmt.Errorf("serialbus: set read timeout: %w", err)
		}
		t.lastTimeout = timeout
	}

	n, err := t.port.Read(t.readChunk)
	if err != nil {
		if t.isClosed() {
			return bus.Frame{}, bus.ErrClosed
		}
		return bus.Frame{}, fmt.Errorf("serialbus: read: %w", err)
	}
	if n == 0 {
		// go.bug.st/serial reports an expired read timeout as (0, nil).
		return bus.Frame{}, bus.ErrReceiveTimeout
	}

	t.rbuf = append(t.rbuf, t.readChunk[:n]...)
	if f, ok := t.takeBuffered(); ok {
		return f, nil
	}
	return bus.Frame{}, bus.ErrReceiveTimeout
}

// takeBuffered scans the receive buffer for one complete record.
func (t *Transport) takeBuffered() (bus.Frame, bool) {
	f, consumed, ok := scanRecord(t.rbuf)
	if consumed > 0 {
		remaining := len(t.rbuf) - consumed
		copy(t.rbuf, t.rbuf[consumed:])
		t.rbuf = t.rbuf[:remaining]
	}
	if !ok {
		return bus.Frame{}, false
	}
	f.Dir = bus.DirReceive
	f.Timestamp = t.clock.Monotonic()
	return f, true
}

// Send writes one frame to the port. A nil return means the whole record
// reached the port.
func (t *Transport) Send(f bus.Frame) error {
	if t.isClosed() {
		return bus.ErrClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.wbuf = appendRecord(t.wbuf[:0], f)
	n, err := t.port.Write(t.wbuf)
	if err != nil {
		return fmt.Errorf("serialbus: write: %w", err)
	}
	if n != len(t.wbuf) {
		return ErrWriteFailed
	}
	return nil
}

// Close closes the underlying port. Blocked reads return and surface as
// ErrClosed.
func (t *Transport) Close() error {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return bus.ErrClosed
	}
	t.closed = true
	t.closeMu.Unlock()
	return t.port.Close()
}

func (t *Transport) isClosed() bool {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	return t.closed
}

// Split returns the independent receive and send halves of the transport,
// so the RX and TX loops never share a code path.
func (t *Transport) Split() (bus.ReceiveEndpoint, bus.SendEndpoint) {
	return receiveHalf{t}, sendHalf{t}
}

type receiveHalf struct{ t *Transport }

func (h receiveHalf) Receive(timeout time.Duration) (bus.Frame, error) {
	return h.t.Receive(timeout)
}

type sendHalf struct{ t *Transport }

func (h sendHalf) Send(f bus.Frame) error {
	return h.t.Send(f)
}
