package state

import (
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Meta carries the bookkeeping common to every snapshot: which sub-fields
// arrived (Valid), the bus timestamp of the committing frame (Stamp) and
// the monotonic instant the commit ran (Captured). Both times are
// monotonic durations since the process anchor.
type Meta struct {
	Valid    uint32
	Stamp    time.Duration
	Captured time.Duration
}

// Complete reports whether every expected sub-field of group g arrived
// before the snapshot was committed.
func (m Meta) Complete(g Group) bool {
	full := g.FullMask()
	return full != 0 && m.Valid == full
}

// JointPositions is the per-joint position snapshot, radians.
type JointPositions struct {
	Meta
	Angles [NumJoints]float64
}

// JointDynamics is the per-joint velocity and torque snapshot.
type JointDynamics struct {
	Meta
	Velocities [NumJoints]float64 // rad/s
	Torques    [NumJoints]float64 // Nm
}

// EndPose is the end-effector pose snapshot: position in metres in the
// base frame, orientation as a unit quaternion.
type EndPose struct {
	Meta
	Position    r3.Vec
	Orientation quat.Number
}

// Gripper is the gripper snapshot.
type Gripper struct {
	Meta
	Width  float64 // m, jaw opening
	Force  float64 // N, grip force
	Moving bool
}

// Diagnostics is the controller health snapshot. Enabled and Mode echo
// the controller's view of the motor stage and are what the lifecycle
// layer's handshakes wait on.
type Diagnostics struct {
	Meta
	BusVoltage  float64 // V
	BusCurrent  float64 // A
	Temperature float64 // degrees C, hottest driver
	Enabled     bool
	Mode        Mode
	FaultCode   uint16
}
