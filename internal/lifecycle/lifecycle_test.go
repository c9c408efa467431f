package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetra-robotics/armlink/internal/bus"
	"github.com/tetra-robotics/armlink/internal/codec"
	"github.com/tetra-robotics/armlink/internal/config"
	"github.com/tetra-robotics/armlink/internal/state"
	"github.com/tetra-robotics/armlink/internal/testutil"
)

func fastOptions() Options {
	receive := "1ms"
	handshake := "200ms"
	poll := "1ms"
	return Options{Tuning: &config.Tuning{
		ReceiveTimeout:        &receive,
		HandshakeTimeout:      &handshake,
		HandshakePollInterval: &poll,
	}}
}

// obedientController acknowledges every control command: it reports the
// requested enabled flag and mode back through the diagnostics frames,
// the way the firmware does.
func obedientController(f bus.Frame) []bus.Frame {
	if f.ID != codec.IDControl {
		return nil
	}
	p := f.Payload()
	enabled := p[0] == 0x01
	mode := state.Mode(p[1])
	if !enabled {
		mode = state.ModeIdle
	}
	power, _ := codec.EncodeDiagPower(24.0, 1.0, 30.0)
	status, _ := codec.EncodeDiagStatus(enabled, mode, 0)
	return []bus.Frame{power, status}
}

// faultingController rejects enable requests with a fault code but still
// acknowledges disables.
func faultingController(f bus.Frame) []bus.Frame {
	if f.ID != codec.IDControl {
		return nil
	}
	p := f.Payload()
	power, _ := codec.EncodeDiagPower(24.0, 1.0, 30.0)
	if p[0] == 0x01 {
		status, _ := codec.EncodeDiagStatus(false, state.ModeIdle, 0x0042)
		return []bus.Frame{power, status}
	}
	status, _ := codec.EncodeDiagStatus(false, state.ModeIdle, 0)
	return []bus.Frame{power, status}
}

func connect(t *testing.T, responder func(bus.Frame) []bus.Frame) (*Standby, *bus.MockTransport) {
	t.Helper()
	m := bus.NewMockTransport(64)
	if responder != nil {
		m.SetResponder(responder)
	}
	standby, err := New().Connect(m, fastOptions())
	require.NoError(t, err)
	return standby, m
}

func TestConnectEntersStandby(t *testing.T) {
	standby, m := connect(t, obedientController)
	require.True(t, standby.Connected())

	// Connecting starts from a known-safe motor state: a disable goes out
	// before anything else.
	testutil.Eventually(t, time.Second, func() bool {
		return m.SentCount() >= 1
	})
	first := m.Sent()[0]
	assert.Equal(t, codec.IDControl, first.ID)
	assert.Equal(t, byte(0x00), first.Payload()[0])

	_, err := standby.Disconnect()
	require.NoError(t, err)
}

func TestConnectNilTransport(t *testing.T) {
	_, err := New().Connect(nil, Options{})
	require.Error(t, err)
}

func TestEnableSuccess(t *testing.T) {
	standby, _ := connect(t, obedientController)

	active, err := standby.Enable(state.ModeJointPosition)
	require.NoError(t, err)
	assert.Equal(t, state.ModeJointPosition, active.Mode())
	assert.True(t, active.Connected())

	// The old wrapper is consumed; every use now fails the same way.
	_, err = standby.Enable(state.ModeTorque)
	assert.ErrorIs(t, err, ErrStateConsumed)
	_, err = standby.Snapshots()
	assert.ErrorIs(t, err, ErrStateConsumed)
	_, err = standby.Disconnect()
	assert.ErrorIs(t, err, ErrStateConsumed)

	require.NoError(t, active.Close())
}

func TestEnableRejectsIdleAndInvalidModes(t *testing.T) {
	standby, _ := connect(t, obedientController)

	_, err := standby.Enable(state.ModeIdle)
	require.Error(t, err)
	_, err = standby.Enable(state.Mode(99))
	require.Error(t, err)

	// Failed validation consumes nothing.
	active, err := standby.Enable(state.ModeCartesian)
	require.NoError(t, err)
	require.NoError(t, active.Close())
}

func TestEnableHandshakeTimeout(t *testing.T) {
	standby, m := connect(t, nil) // controller never answers

	_, err := standby.Enable(state.ModeJointPosition)
	require.ErrorIs(t, err, ErrHandshakeTimeout)

	// The receiver is still the valid state.
	assert.True(t, standby.Connected())

	// The guard re-issued a disable: connect disable, enable attempt,
	// guard disable.
	testutil.Eventually(t, time.Second, func() bool {
		return m.SentCount() >= 3
	})
	sent := m.Sent()
	last := sent[len(sent)-1]
	assert.Equal(t, codec.IDControl, last.ID)
	assert.Equal(t, byte(0x00), last.Payload()[0], "guard must leave the motors disabled")

	_, err = standby.Disconnect()
	require.NoError(t, err)
}

func TestEnableHandshakeRejected(t *testing.T) {
	standby, _ := connect(t, faultingController)

	_, err := standby.Enable(state.ModeJointPosition)
	require.ErrorIs(t, err, ErrHandshakeRejected)
	assert.True(t, standby.Connected(), "rejection must not consume the state")

	_, err = standby.Disconnect()
	require.NoError(t, err)
}

func TestDisableReturnsToStandby(t *testing.T) {
	standby, _ := connect(t, obedientController)
	active, err := standby.Enable(state.ModeTorque)
	require.NoError(t, err)

	back, err := active.Disable()
	require.NoError(t, err)
	assert.True(t, back.Connected())

	// Active is consumed by the successful disable.
	_, err = active.Disable()
	assert.ErrorIs(t, err, ErrStateConsumed)
	assert.ErrorIs(t, active.Close(), ErrStateConsumed)

	_, err = back.Disconnect()
	require.NoError(t, err)
}

func TestActiveTargets(t *testing.T) {
	standby, m := connect(t, obedientController)
	active, err := standby.Enable(state.ModeJointPosition)
	require.NoError(t, err)

	require.NoError(t, active.SetJointTarget(2, 0.5))
	testutil.Eventually(t, time.Second, func() bool {
		for _, f := range m.Sent() {
			if f.ID == codec.JointTargetID(2) {
				return true
			}
		}
		return false
	})

	require.NoError(t, active.SetGripperTarget(0.04, 20.0))
	testutil.Eventually(t, time.Second, func() bool {
		for _, f := range m.Sent() {
			if f.ID == codec.IDGripperTarget {
				return true
			}
		}
		return false
	})

	// Invalid setpoints are rejected before they reach the wire.
	require.Error(t, active.SetJointTarget(17, 0.5))
	require.Error(t, active.SetGripperTarget(-1, 0))

	require.NoError(t, active.Close())
}

func TestSnapshotsFlowInStandby(t *testing.T) {
	standby, m := connect(t, obedientController)

	for j := 0; j < state.NumJoints; j++ {
		f, err := codec.EncodeJointPosition(j, 0.25)
		require.NoError(t, err)
		m.Push(f)
	}

	store, err := standby.Snapshots()
	require.NoError(t, err)
	testutil.Eventually(t, time.Second, func() bool {
		snap, ok := store.JointPositions()
		return ok && snap.Complete(state.GroupJointPositions)
	})

	testutil.Eventually(t, time.Second, func() bool {
		return standby.IsFresh(time.Second)
	})
	_, ok := standby.Age()
	assert.True(t, ok)

	_, err = standby.Disconnect()
	require.NoError(t, err)
}

func TestFatalTransportSurfacesAsDisconnected(t *testing.T) {
	standby, m := connect(t, obedientController)

	m.FailReceive(errors.New("adapter unplugged"))
	testutil.Eventually(t, time.Second, func() bool {
		return !standby.Connected()
	})

	_, err := standby.Enable(state.ModeJointPosition)
	require.ErrorIs(t, err, ErrDisconnected)

	// Disconnect still tears the session down cleanly.
	_, err = standby.Disconnect()
	require.NoError(t, err)
}

func TestActiveCloseConsumes(t *testing.T) {
	standby, m := connect(t, obedientController)
	active, err := standby.Enable(state.ModeCartesian)
	require.NoError(t, err)

	require.NoError(t, active.Close())
	assert.False(t, active.Connected())
	assert.ErrorIs(t, active.Close(), ErrStateConsumed)
	assert.ErrorIs(t, active.SetJointTarget(0, 0), ErrStateConsumed)
	_, err = active.Snapshots()
	assert.ErrorIs(t, err, ErrStateConsumed)

	// The transport closed with the session.
	_, err = m.Receive(time.Millisecond)
	assert.ErrorIs(t, err, bus.ErrClosed)
}

func TestRegisterHookThroughLifecycle(t *testing.T) {
	standby, m := connect(t, obedientController)

	hook, err := standby.RegisterHook()
	require.NoError(t, err)
	defer hook.Close()

	f, err := codec.EncodeJointPosition(0, 1.0)
	require.NoError(t, err)
	m.Push(f)

	select {
	case got := <-hook.Frames():
		assert.Equal(t, codec.JointPositionID(0), got.ID)
		assert.Equal(t, bus.DirReceive, got.Dir)
	case <-time.After(time.Second):
		t.Fatal("hook never received the frame")
	}

	_, err = standby.Disconnect()
	require.NoError(t, err)
}

func TestFullCycle(t *testing.T) {
	standby, _ := connect(t, obedientController)

	active, err := standby.Enable(state.ModeJointPosition)
	require.NoError(t, err)

	back, err := active.Disable()
	require.NoError(t, err)

	disconnected, err := back.Disconnect()
	require.NoError(t, err)
	require.NotNil(t, disconnected)
}
