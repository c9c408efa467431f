// Package lifecycle moves the robot between Disconnected, Standby and
// Active(mode) through compile-time-typed state values. Each transition
// runs every fallible step (handshake command, bounded acknowledgement
// wait) against the state it already holds; only after all of them
// succeed does the session handle move into the new state value. A fault
// before that commit point leaves the original state intact and the
// motors disabled; a fault is impossible after it, so exactly one value
// ever owns the session.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/tetra-robotics/armlink/internal/bus"
	"github.com/tetra-robotics/armlink/internal/codec"
	"github.com/tetra-robotics/armlink/internal/config"
	"github.com/tetra-robotics/armlink/internal/pipeline"
	"github.com/tetra-robotics/armlink/internal/state"
	"github.com/tetra-robotics/armlink/internal/timeutil"
)

var (
	// ErrStateConsumed reports use of a state value after a transition
	// already moved its session into a new value.
	ErrStateConsumed = errors.New("lifecycle: state already consumed by a transition")

	// ErrHandshakeTimeout reports that the controller did not
	// acknowledge a transition within the handshake timeout.
	ErrHandshakeTimeout = errors.New("lifecycle: handshake timed out")

	// ErrHandshakeRejected reports that the controller answered a
	// transition with a fault.
	ErrHandshakeRejected = errors.New("lifecycle: handshake rejected")

	// ErrDisconnected reports that the underlying session stopped,
	// usually after a fatal transport error.
	ErrDisconnected = errors.New("lifecycle: session disconnected")
)

// Options configures Connect. Zero values use defaults.
type Options struct {
	// Tuning supplies the timing configuration; nil uses defaults.
	Tuning *config.Tuning

	// Clock substitutes the time source; nil uses the real clock.
	Clock timeutil.Clock
}

// handle is the single owning reference to the live session. Exactly one
// state value holds it at any time; transitions move the pointer and nil
// out the old wrapper.
type handle struct {
	session          *pipeline.Session
	clock            timeutil.Clock
	handshakeTimeout time.Duration
	handshakePoll    time.Duration
}

// Disconnected is the initial state: no link, no session.
type Disconnected struct{}

// New returns the initial Disconnected state.
func New() *Disconnected {
	return &Disconnected{}
}

// Connect opens a session over the transport and enters Standby: link up,
// motors inactive. A best-effort disable is queued immediately so the arm
// starts from a known-safe motor state.
func (*Disconnected) Connect(transport bus.Transport, opts Options) (*Standby, error) {
	if transport == nil {
		return nil, errors.New("lifecycle: nil transport")
	}
	tuning := opts.Tuning
	if tuning == nil {
		tuning = config.DefaultTuning()
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	sess := pipeline.Start(transport, tuning, clock)
	_ = sess.Command(codec.EncodeControl(false, state.ModeIdle))

	return &Standby{h: &handle{
		session:          sess,
		clock:            clock,
		handshakeTimeout: tuning.GetHandshakeTimeout(),
		handshakePoll:    tuning.GetHandshakePollInterval(),
	}}, nil
}

// Standby is the connected state with motors inactive.
type Standby struct {
	h *handle
}

// Enable performs the enable handshake and, on success, enters
// Active(mode). On any failure the receiver remains the valid state, no
// ownership has moved, and the guard has re-issued a disable so the
// motors end off.
func (s *Standby) Enable(mode state.Mode) (*Active, error) {
	if s.h == nil {
		return nil, ErrStateConsumed
	}
	if !mode.Valid() || mode == state.ModeIdle {
		return nil, fmt.Errorf("lifecycle: cannot enable mode %s", mode)
	}
	sess := s.h.session
	if !sess.Running() {
		return nil, disconnectedErr(sess)
	}

	guard := newDisableGuard(sess)
	defer guard.release()

	// Fallible phase: everything that can fail happens before any
	// ownership moves.
	if err := sess.Command(codec.EncodeControl(true, mode)); err != nil {
		return nil, fmt.Errorf("lifecycle: queue enable command: %w", err)
	}
	err := s.h.awaitAck(func(d state.Diagnostics) bool {
		return d.Enabled && d.Mode == mode
	})
	if err != nil {
		return nil, fmt.Errorf("lifecycle: enable handshake: %w", err)
	}
	guard.success()

	// Commit point: the hand-off below performs no I/O and cannot fail.
	a := &Active{h: s.h, mode: mode}
	s.h = nil
	return a, nil
}

// Disconnect stops the pipeline, closes the transport and returns to the
// initial state. The wrapper is consumed even if teardown reports an
// error; the session resource is released exactly once either way.
func (s *Standby) Disconnect() (*Disconnected, error) {
	if s.h == nil {
		return nil, ErrStateConsumed
	}
	err := s.h.session.Stop()
	s.h = nil
	return &Disconnected{}, err
}

// Connected reports whether the underlying session is still running.
func (s *Standby) Connected() bool {
	return s.h != nil && s.h.session.Running()
}

// Snapshots returns the state store for wait-free snapshot reads.
func (s *Standby) Snapshots() (*state.Store, error) {
	if s.h == nil {
		return nil, ErrStateConsumed
	}
	return s.h.session.Store(), nil
}

// RegisterHook adds a raw-frame observer.
func (s *Standby) RegisterHook() (*pipeline.Hook, error) {
	if s.h == nil {
		return nil, ErrStateConsumed
	}
	return s.h.session.RegisterHook(), nil
}

// IsFresh reports whether a frame arrived within maxAge.
func (s *Standby) IsFresh(maxAge time.Duration) bool {
	return s.h != nil && s.h.session.Monitor().IsFresh(maxAge)
}

// Age returns the time since the last received frame.
func (s *Standby) Age() (time.Duration, bool) {
	if s.h == nil {
		return 0, false
	}
	return s.h.session.Monitor().Age()
}

// Active is the enabled state: motors on under a control mode.
type Active struct {
	h    *handle
	mode state.Mode
}

// Mode returns the control mode the arm was enabled under.
func (a *Active) Mode() state.Mode {
	return a.mode
}

// Disable performs the disable handshake and returns to Standby. On
// failure the receiver remains valid, but a disable has still been issued
// so a fault mid-handshake cannot leave the motors enabled.
func (a *Active) Disable() (*Standby, error) {
	if a.h == nil {
		return nil, ErrStateConsumed
	}
	sess := a.h.session
	if !sess.Running() {
		return nil, disconnectedErr(sess)
	}

	guard := newDisableGuard(sess)
	defer guard.release()

	if err := sess.Command(codec.EncodeControl(false, state.ModeIdle)); err != nil {
		return nil, fmt.Errorf("lifecycle: queue disable command: %w", err)
	}
	err := a.h.awaitAck(func(d state.Diagnostics) bool {
		return !d.Enabled
	})
	if err != nil {
		return nil, fmt.Errorf("lifecycle: disable handshake: %w", err)
	}
	guard.success()

	st := &Standby{h: a.h}
	a.h = nil
	return st, nil
}

// Close is the final teardown from Active: a best-effort disable followed
// by session shutdown. The wrapper is consumed; teardown runs once.
func (a *Active) Close() error {
	if a.h == nil {
		return ErrStateConsumed
	}
	sess := a.h.session
	_ = sess.Command(codec.EncodeControl(false, state.ModeIdle))
	err := sess.Stop()
	a.h = nil
	return err
}

// SetJointTarget streams a joint setpoint through the latest-wins slot.
func (a *Active) SetJointTarget(joint int, angle float64) error {
	if a.h == nil {
		return ErrStateConsumed
	}
	f, err := codec.EncodeJointTarget(joint, angle)
	if err != nil {
		return err
	}
	a.h.session.SetTarget(f)
	return nil
}

// SetGripperTarget streams a gripper setpoint through the latest-wins
// slot.
func (a *Active) SetGripperTarget(width, force float64) error {
	if a.h == nil {
		return ErrStateConsumed
	}
	f, err := codec.EncodeGripperTarget(width, force)
	if err != nil {
		return err
	}
	a.h.session.SetTarget(f)
	return nil
}

// Command enqueues a one-shot frame on the reliable queue.
func (a *Active) Command(f bus.Frame) error {
	if a.h == nil {
		return ErrStateConsumed
	}
	return a.h.session.Command(f)
}

// Connected reports whether the underlying session is still running.
func (a *Active) Connected() bool {
	return a.h != nil && a.h.session.Running()
}

// Snapshots returns the state store for wait-free snapshot reads.
func (a *Active) Snapshots() (*state.Store, error) {
	if a.h == nil {
		return nil, ErrStateConsumed
	}
	return a.h.session.Store(), nil
}

// RegisterHook adds a raw-frame observer.
func (a *Active) RegisterHook() (*pipeline.Hook, error) {
	if a.h == nil {
		return nil, ErrStateConsumed
	}
	return a.h.session.RegisterHook(), nil
}

// IsFresh reports whether a frame arrived within maxAge.
func (a *Active) IsFresh(maxAge time.Duration) bool {
	return a.h != nil && a.h.session.Monitor().IsFresh(maxAge)
}

// Age returns the time since the last received frame.
func (a *Active) Age() (time.Duration, bool) {
	if a.h == nil {
		return 0, false
	}
	return a.h.session.Monitor().Age()
}

func disconnectedErr(sess *pipeline.Session) error {
	if err := sess.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return ErrDisconnected
}
