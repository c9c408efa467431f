package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/tetra-robotics/armlink/internal/bus"
	"github.com/tetra-robotics/armlink/internal/codec"
	"github.com/tetra-robotics/armlink/internal/config"
	"github.com/tetra-robotics/armlink/internal/state"
	"github.com/tetra-robotics/armlink/internal/testutil"
)

func fastTuning() *config.Tuning {
	rt := "1ms"
	return &config.Tuning{ReceiveTimeout: &rt}
}

func pushJointGroup(t *testing.T, m *bus.MockTransport, angle float64) {
	t.Helper()
	for j := 0; j < state.NumJoints; j++ {
		f, err := codec.EncodeJointPosition(j, angle)
		if err != nil {
			t.Fatalf("encode joint %d: %v", j, err)
		}
		m.Push(f)
	}
}

func TestSessionTelemetryFlow(t *testing.T) {
	m := bus.NewMockTransport(64)
	s := Start(m, fastTuning(), nil)
	defer s.Stop()

	pushJointGroup(t, m, 0.75)

	testutil.Eventually(t, time.Second, func() bool {
		snap, ok := s.Store().JointPositions()
		return ok && snap.Complete(state.GroupJointPositions)
	})

	snap, _ := s.Store().JointPositions()
	for j := 0; j < state.NumJoints; j++ {
		if snap.Angles[j] != 0.75 {
			t.Errorf("Angles[%d] = %v, want 0.75", j, snap.Angles[j])
		}
	}

	stats := s.Stats()
	if stats.FramesReceived < uint64(state.NumJoints) {
		t.Errorf("FramesReceived = %d, want >= %d", stats.FramesReceived, state.NumJoints)
	}
	if stats.Commits < 1 {
		t.Errorf("Commits = %d, want >= 1", stats.Commits)
	}
	if !s.Running() {
		t.Error("session not running after clean traffic")
	}
}

func TestSessionMonitorTracksTraffic(t *testing.T) {
	m := bus.NewMockTransport(16)
	s := Start(m, fastTuning(), nil)
	defer s.Stop()

	if _, ok := s.Monitor().Age(); ok {
		t.Error("monitor saw a frame before any traffic")
	}

	f, _ := codec.EncodeJointPosition(0, 0.1)
	m.Push(f)
	testutil.Eventually(t, time.Second, func() bool {
		_, ok := s.Monitor().Age()
		return ok
	})
}

func TestSessionCommandReachesTransport(t *testing.T) {
	m := bus.NewMockTransport(16)
	s := Start(m, fastTuning(), nil)
	defer s.Stop()

	hook := s.RegisterHook()
	defer hook.Close()

	if err := s.Command(codec.EncodeControl(true, state.ModeJointPosition)); err != nil {
		t.Fatalf("Command failed: %v", err)
	}

	testutil.Eventually(t, time.Second, func() bool {
		return m.SentCount() == 1
	})
	sent := m.Sent()[0]
	if sent.ID != codec.IDControl {
		t.Errorf("sent id = 0x%X, want 0x%X", sent.ID, codec.IDControl)
	}

	// A confirmed send is reported to observers, marked as transmit.
	select {
	case f := <-hook.Frames():
		if f.Dir != bus.DirTransmit {
			t.Errorf("observer frame dir = %v, want tx", f.Dir)
		}
		if f.ID != codec.IDControl {
			t.Errorf("observer frame id = 0x%X", f.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("observer never heard about the confirmed send")
	}
}

func TestSessionSetTargetSends(t *testing.T) {
	m := bus.NewMockTransport(16)
	s := Start(m, fastTuning(), nil)
	defer s.Stop()

	f, err := codec.EncodeJointTarget(2, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	s.SetTarget(f)

	testutil.Eventually(t, time.Second, func() bool {
		for _, sent := range m.Sent() {
			if sent.ID == codec.JointTargetID(2) {
				return true
			}
		}
		return false
	})
}

func TestSessionSendErrorIsNotFatal(t *testing.T) {
	m := bus.NewMockTransport(16)
	s := Start(m, fastTuning(), nil)
	defer s.Stop()

	hook := s.RegisterHook()
	defer hook.Close()

	m.FailSend(errors.New("transient write failure"))
	if err := s.Command(codec.EncodeControl(false, state.ModeIdle)); err != nil {
		t.Fatal(err)
	}

	testutil.Eventually(t, time.Second, func() bool {
		return s.Stats().SendErrors >= 1
	})
	if !s.Running() {
		t.Fatal("send error killed the session")
	}

	// The failed frame never reached the bus, so observers never saw it.
	select {
	case f := <-hook.Frames():
		t.Fatalf("observer saw unconfirmed frame %v", f)
	default:
	}

	m.FailSend(nil)
	if err := s.Command(codec.EncodeControl(false, state.ModeIdle)); err != nil {
		t.Fatal(err)
	}
	testutil.Eventually(t, time.Second, func() bool {
		return m.SentCount() == 1
	})
}

func TestSessionFatalReceiveStops(t *testing.T) {
	m := bus.NewMockTransport(16)
	s := Start(m, fastTuning(), nil)

	m.FailReceive(errors.New("port vanished"))

	testutil.Eventually(t, time.Second, func() bool {
		return !s.Running()
	})
	if s.Err() == nil {
		t.Error("Err() is nil after a fatal receive")
	}

	// Teardown after a fatal error must still succeed promptly.
	if err := s.Stop(); err != nil {
		t.Errorf("Stop after fatal error: %v", err)
	}
}

func TestSessionFatalSendStops(t *testing.T) {
	m := bus.NewMockTransport(16)
	s := Start(m, fastTuning(), nil)
	defer s.Stop()

	m.FailSend(bus.ErrClosed)
	if err := s.Command(codec.EncodeControl(false, state.ModeIdle)); err != nil {
		t.Fatal(err)
	}

	testutil.Eventually(t, time.Second, func() bool {
		return !s.Running()
	})
	if !errors.Is(s.Err(), bus.ErrClosed) {
		t.Errorf("Err() = %v, want ErrClosed", s.Err())
	}
}

func TestSessionStopJoinsAndCloses(t *testing.T) {
	m := bus.NewMockTransport(16)
	s := Start(m, fastTuning(), nil)

	start := time.Now()
	if err := s.Stop(); err != nil {
		t.Errorf("Stop returned %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Stop took %v; join is supposed to be bounded", elapsed)
	}
	if s.Running() {
		t.Error("Running() true after Stop")
	}

	// The transport is closed with the session.
	if _, err := m.Receive(time.Millisecond); !errors.Is(err, bus.ErrClosed) {
		t.Errorf("transport Receive after Stop = %v, want ErrClosed", err)
	}

	// A second Stop is harmless.
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop returned %v", err)
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	a := Start(bus.NewMockTransport(4), fastTuning(), nil)
	b := Start(bus.NewMockTransport(4), fastTuning(), nil)
	defer a.Stop()
	defer b.Stop()

	if a.ID() == b.ID() {
		t.Error("two sessions share an id")
	}
}
