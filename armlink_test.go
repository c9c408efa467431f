package armlink

import (
	"os"
	"testing"

	"github.com/tetra-robotics/armlink/internal/bus"
	"github.com/tetra-robotics/armlink/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.Mute()
	os.Exit(m.Run())
}

func TestConnectDisconnect(t *testing.T) {
	m := bus.NewMockTransport(16)

	standby, err := New().Connect(m, Options{})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !standby.Connected() {
		t.Error("not connected after Connect")
	}

	if _, err := standby.Snapshots(); err != nil {
		t.Errorf("Snapshots failed: %v", err)
	}

	if _, err := standby.Disconnect(); err != nil {
		t.Errorf("Disconnect failed: %v", err)
	}
}

func TestLoadTuningBadExtension(t *testing.T) {
	if _, err := LoadTuning("/etc/armlink/tuning.toml"); err == nil {
		t.Error("expected error for non-json tuning file")
	}
}

func TestReexportedErrors(t *testing.T) {
	// The facade aliases must be the same sentinel values the internal
	// packages return, so errors.Is works across the boundary.
	if ErrStateConsumed == nil || ErrHandshakeTimeout == nil || ErrHandshakeRejected == nil || ErrDisconnected == nil {
		t.Fatal("nil re-exported sentinel")
	}

	m := bus.NewMockTransport(16)
	standby, err := New().Connect(m, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := standby.Disconnect(); err != nil {
		t.Fatal(err)
	}
	if _, err := standby.Disconnect(); err != ErrStateConsumed {
		t.Errorf("second Disconnect = %v, want ErrStateConsumed", err)
	}
}
