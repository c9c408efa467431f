// Package armlink is the control core of the armlink robotic-arm SDK: a
// concurrent frame pipeline between a physical bus transport and typed,
// lock-free robot-state snapshots, plus a typed lifecycle layer that
// moves the arm safely between Disconnected, Standby and Active(mode).
//
// Typical use:
//
//	transport, err := armlink.OpenSerial("/dev/ttyUSB0", armlink.PortOptions{})
//	if err != nil { ... }
//	standby, err := armlink.New().Connect(transport, armlink.Options{})
//	if err != nil { ... }
//	active, err := standby.Enable(armlink.ModeJointPosition)
//	if err != nil {
//		// still in Standby; motors are disabled
//	}
//
// The package re-exports the SDK surface; the implementation lives under
// internal/ with the pipeline, lifecycle, codec and transport packages.
package armlink

import (
	"github.com/tetra-robotics/armlink/internal/bus"
	"github.com/tetra-robotics/armlink/internal/config"
	"github.com/tetra-robotics/armlink/internal/lifecycle"
	"github.com/tetra-robotics/armlink/internal/pipeline"
	"github.com/tetra-robotics/armlink/internal/serialbus"
	"github.com/tetra-robotics/armlink/internal/state"
)

// Frame and transport surface.
type (
	// Frame is a single fixed-size bus message.
	Frame = bus.Frame
	// Transport moves frames over the physical link.
	Transport = bus.Transport
	// PortOptions configures a serial link.
	PortOptions = serialbus.PortOptions
)

// Lifecycle surface. A value of each state type owns the session while
// the robot is in that state; transitions consume the old value.
type (
	Disconnected = lifecycle.Disconnected
	Standby      = lifecycle.Standby
	Active       = lifecycle.Active
	Options      = lifecycle.Options
)

// Hook is a registered raw-frame observer with a bounded delivery queue.
type Hook = pipeline.Hook

// Tuning is the timing and capacity configuration; zero-value fields use
// defaults.
type Tuning = config.Tuning

// Mode selects what the motors are enabled for.
type Mode = state.Mode

const (
	ModeJointPosition = state.ModeJointPosition
	ModeCartesian     = state.ModeCartesian
	ModeTorque        = state.ModeTorque
)

// Snapshot types read back from the state store.
type (
	JointPositions = state.JointPositions
	JointDynamics  = state.JointDynamics
	EndPose        = state.EndPose
	Gripper        = state.Gripper
	Diagnostics    = state.Diagnostics
)

// New returns the initial Disconnected state.
func New() *Disconnected {
	return lifecycle.New()
}

// OpenSerial opens a serial-port transport suitable for Connect.
func OpenSerial(path string, opts PortOptions) (*serialbus.Transport, error) {
	return serialbus.Open(path, opts)
}

// LoadTuning loads timing configuration from a JSON file.
func LoadTuning(path string) (*Tuning, error) {
	return config.LoadTuning(path)
}

// Errors surfaced by lifecycle transitions.
var (
	ErrStateConsumed     = lifecycle.ErrStateConsumed
	ErrHandshakeTimeout  = lifecycle.ErrHandshakeTimeout
	ErrHandshakeRejected = lifecycle.ErrHandshakeRejected
	ErrDisconnected      = lifecycle.ErrDisconnected
)
