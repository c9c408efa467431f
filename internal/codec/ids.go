// Package codec maps raw bus frames to and from typed robot state. It is
// pure: no I/O, no shared state. The pipeline calls Decode on every
// received frame; the lifecycle and command layers use the Encode
// functions to build outgoing frames.
//
// Identifier layout (11-bit, CAN-style):
//
//	0x100+j  joint j position telemetry
//	0x200+j  joint j dynamics telemetry (velocity + torque)
//	0x300-2  end-effector pose telemetry (position, orientation halves)
//	0x400    gripper telemetry
//	0x500-1  controller diagnostics (power, status)
//	0x600+   commands (control, targets); never decoded into state
package codec

import "github.com/tetra-robotics/armlink/internal/state"

const (
	baseJointPosition uint32 = 0x100
	baseJointDynamics uint32 = 0x200

	idPosePosition     uint32 = 0x300
	idPoseOrientationA uint32 = 0x301
	idPoseOrientationB uint32 = 0x302

	idGripper uint32 = 0x400

	idDiagPower  uint32 = 0x500
	idDiagStatus uint32 = 0x501

	// Command identifiers. IDControl carries the enable/disable/mode
	// handshake; the target ids carry continuous setpoints.
	IDControl       uint32 = 0x600
	baseJointTarget uint32 = 0x610
	IDGripperTarget uint32 = 0x620
)

// JointPositionID returns the telemetry id for joint j's position.
func JointPositionID(j int) uint32 {
	return baseJointPosition + uint32(j)
}

// JointDynamicsID returns the telemetry id for joint j's dynamics.
func JointDynamicsID(j int) uint32 {
	return baseJointDynamics + uint32(j)
}

// JointTargetID returns the command id for joint j's setpoint.
func JointTargetID(j int) uint32 {
	return baseJointTarget + uint32(j)
}

// Classify returns the state group a telemetry id belongs to. ok is false
// for command ids and for identifiers this codec does not recognise;
// unknown ids are not an error at this level, the bus may carry traffic
// for other nodes.
func Classify(id uint32) (state.Group, bool) {
	switch {
	case id >= baseJointPosition && id < baseJointPosition+state.NumJoints:
		return state.GroupJointPositions, true
	case id >= baseJointDynamics && id < baseJointDynamics+state.NumJoints:
		return state.GroupJointDynamics, true
	case id == idPosePosition, id == idPoseOrientationA, id == idPoseOrientationB:
		return state.GroupEndPose, true
	case id == idGripper:
		return state.GroupGripper, true
	case id == idDiagPower, id == idDiagStatus:
		return state.GroupDiagnostics, true
	default:
		return 0, false
	}
}
