// Package state holds the typed robot-state snapshots published by the
// frame pipeline and the lock-free store the application reads them from.
package state

// NumJoints is the number of joints on supported arms.
const NumJoints = 6

// Group identifies one logical unit of robot state assembled from one or
// more bus frames. Groups are committed and read independently.
type Group uint8

const (
	GroupJointPositions Group = iota
	GroupJointDynamics
	GroupEndPose
	GroupGripper
	GroupDiagnostics

	groupCount
)

// GroupCount is the number of state groups.
const GroupCount = int(groupCount)

// String returns the group name used in logs.
func (g Group) String() string {
	switch g {
	case GroupJointPositions:
		return "joint_positions"
	case GroupJointDynamics:
		return "joint_dynamics"
	case GroupEndPose:
		return "end_pose"
	case GroupGripper:
		return "gripper"
	case GroupDiagnostics:
		return "diagnostics"
	default:
		return "unknown"
	}
}

// Validity bitmasks. A group's snapshot carries the union of the field
// bits that actually arrived before the commit.
const (
	// JointMaskAll has one bit per joint, for the joint groups.
	JointMaskAll uint32 = 1<<NumJoints - 1

	// End pose fields.
	PoseFieldPosition     uint32 = 1 << 0
	PoseFieldOrientationA uint32 = 1 << 1
	PoseFieldOrientationB uint32 = 1 << 2
	PoseMaskAll                  = PoseFieldPosition | PoseFieldOrientationA | PoseFieldOrientationB

	// Gripper is carried in a single frame.
	GripperFieldAll uint32 = 1 << 0

	// Diagnostics fields.
	DiagFieldPower  uint32 = 1 << 0
	DiagFieldStatus uint32 = 1 << 1
	DiagMaskAll            = DiagFieldPower | DiagFieldStatus
)

// FullMask returns the bitmask meaning "all sub-fields arrived" for g.
func (g Group) FullMask() uint32 {
	switch g {
	case GroupJointPositions, GroupJointDynamics:
		return JointMaskAll
	case GroupEndPose:
		return PoseMaskAll
	case GroupGripper:
		return GripperFieldAll
	case GroupDiagnostics:
		return DiagMaskAll
	default:
		return 0
	}
}

// JointBit returns the validity bit for a joint index.
func JointBit(joint int) uint32 {
	return 1 << uint(joint)
}

// Mode is a motor control mode the arm can be enabled under.
type Mode uint8

const (
	// ModeIdle is reported by the arm while the motors are disabled.
	ModeIdle Mode = iota
	// ModeJointPosition accepts per-joint position targets.
	ModeJointPosition
	// ModeCartesian accepts end-effector pose targets.
	ModeCartesian
	// ModeTorque accepts per-joint torque targets.
	ModeTorque

	modeCount
)

// Valid reports whether m names a real control mode (ModeIdle included).
func (m Mode) Valid() bool {
	return m < modeCount
}

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeJointPosition:
		return "joint_position"
	case ModeCartesian:
		return "cartesian"
	case ModeTorque:
		return "torque"
	default:
		return "invalid"
	}
}
