package bus

import (
	"sync"
	"time"
)

// MockTransport is an in-memory Transport with configurable behaviour for
// testing: frames can be queued for receipt, sends are captured, errors
// are injectable, and an optional Responder simulates a controller that
// answers commands.
type MockTransport struct {
	mu sync.Mutex

	incoming chan Frame
	sent     []Frame

	// ReceiveErr, once set, is returned by every subsequent Receive.
	receiveErr error
	// SendErr, once set, is returned by every subsequent Send.
	sendErr error

	// Responder, when set, is invoked with each successfully sent frame;
	// the frames it returns are queued for receipt, simulating the
	// controller's side of the wire.
	responder func(Frame) []Frame

	// Loopback re-queues every successfully sent frame on the receive
	// path, mimicking buses that echo transmissions.
	loopback bool

	closed    chan struct{}
	closeOnce sync.Once
}

// NewMockTransport creates a mock with room for buffer queued frames.
func NewMockTransport(buffer int) *MockTransport {
	if buffer <= 0 {
		buffer = 256
	}
	return &MockTransport{
		incoming: make(chan Frame, buffer),
		closed:   make(chan struct{}),
	}
}

// Push queues a frame for a future Receive call.
func (m *MockTransport) Push(f Frame) {
	select {
	case m.incoming <- f:
	case <-m.closed:
	}
}

// FailReceive makes every subsequent Receive return err.
func (m *MockTransport) FailReceive(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiveErr = err
}

// FailSend makes every subsequent Send return err; nil clears it.
func (m *MockTransport) FailSend(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetResponder installs the simulated controller.
func (m *MockTransport) SetResponder(fn func(Frame) []Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
}

// SetLoopback toggles echoing of sent frames onto the receive path.
func (m *MockTransport) SetLoopback(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loopback = v
}

// Receive returns the next queued frame, ErrReceiveTimeout after the
// timeout, or the injected error.
func (m *MockTransport) Receive(timeout time.Duration) (Frame, error) {
	m.mu.Lock()
	err := m.receiveErr
	m.mu.Unlock()
	if err != nil {
		return Frame{}, err
	}

	select {
	case <-m.closed:
		return Frame{}, ErrClosed
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-m.incoming:
		return f, nil
	case <-m.closed:
		return Frame{}, ErrClosed
	case <-timer.C:
		return Frame{}, ErrReceiveTimeout
	}
}

// Send captures the frame and feeds the responder and loopback paths.
func (m *MockTransport) Send(f Frame) error {
	m.mu.Lock()
	if m.sendErr != nil {
		err := m.sendErr
		m.mu.Unlock()
		return err
	}
	m.sent = append(m.sent, f)
	responder := m.responder
	loopback := m.loopback
	m.mu.Unlock()

	if loopback {
		m.Push(f)
	}
	if responder != nil {
		for _, r := range responder(f) {
			m.Push(r)
		}
	}
	return nil
}

// Sent returns a copy of every frame sent so far.
func (m *MockTransport) Sent() []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Frame, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentCount returns how many frames were sent.
func (m *MockTransport) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// Close unblocks any pending Receive and fails further operations.
func (m *MockTransport) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

// Split returns the mock's receive and send halves.
func (m *MockTransport) Split() (ReceiveEndpoint, SendEndpoint) {
	return mockReceiveHalf{m}, mockSendHalf{m}
}

type mockReceiveHalf struct{ m *MockTransport }

func (h mockReceiveHalf) Receive(timeout time.Duration) (Frame, error) {
	return h.m.Receive(timeout)
}

type mockSendHalf struct{ m *MockTransport }

func (h mockSendHalf) Send(f Frame) error {
	return h.m.Send(f)
}
