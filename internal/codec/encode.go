package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tetra-robotics/armlink/internal/bus"
	"github.com/tetra-robotics/armlink/internal/state"
	"github.com/tetra-robotics/armlink/internal/units"
)

// EncodeControl builds the enable/disable handshake command. The frame
// requests the motor stage on or off and, when enabling, the control mode
// to run under. The controller acknowledges through the diagnostics
// status frame.
func EncodeControl(enable bool, mode state.Mode) bus.Frame {
	var p [2]byte
	if enable {
		p[0] = 0x01
	}
	p[1] = byte(mode)
	f, _ := bus.NewFrame(IDControl, p[:])
	f.Dir = bus.DirTransmit
	return f
}

// EncodeJointTarget builds a continuous joint setpoint command.
func EncodeJointTarget(joint int, angle float64) (bus.Frame, error) {
	if joint < 0 || joint >= state.NumJoints {
		return bus.Frame{}, fmt.Errorf("%w: joint index %d", ErrOutOfRange, joint)
	}
	if !units.InRange(angle, units.MaxJointAngleRad) {
		return bus.Frame{}, fmt.Errorf("%w: joint %d target %g", ErrOutOfRange, joint, angle)
	}
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], math.Float32bits(float32(angle)))
	f, _ := bus.NewFrame(JointTargetID(joint), p[:])
	f.Dir = bus.DirTransmit
	return f, nil
}

// EncodeGripperTarget builds a gripper setpoint command.
func EncodeGripperTarget(width, force float64) (bus.Frame, error) {
	if !units.InRange(width, units.MaxGripperWidthM) || width < 0 {
		return bus.Frame{}, fmt.Errorf("%w: gripper width %g", ErrOutOfRange, width)
	}
	if !units.InRange(force, units.MaxGripperForceN) || force < 0 {
		return bus.Frame{}, fmt.Errorf("%w: gripper force %g", ErrOutOfRange, force)
	}
	var p [4]byte
	binary.LittleEndian.PutUint16(p[0:2], uint16(width*10000.0))
	binary.LittleEndian.PutUint16(p[2:4], uint16(force*10.0))
	f, _ := bus.NewFrame(IDGripperTarget, p[:])
	f.Dir = bus.DirTransmit
	return f, nil
}

// Telemetry encoders. The controller side of the wire is not part of this
// SDK, but simulators and tests need to fabricate the same frames the
// firmware emits, and keeping them beside the decoders keeps the two in
// lockstep.

// EncodeJointPosition builds joint j's position telemetry frame.
func EncodeJointPosition(joint int, angle float64) (bus.Frame, error) {
	if joint < 0 || joint >= state.NumJoints {
		return bus.Frame{}, fmt.Errorf("%w: joint index %d", ErrOutOfRange, joint)
	}
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], math.Float32bits(float32(angle)))
	return bus.NewFrame(JointPositionID(joint), p[:])
}

// EncodeJointDynamics builds joint j's dynamics telemetry frame.
func EncodeJointDynamics(joint int, velocity, torque float64) (bus.Frame, error) {
	if joint < 0 || joint >= state.NumJoints {
		return bus.Frame{}, fmt.Errorf("%w: joint index %d", ErrOutOfRange, joint)
	}
	var p [8]byte
	binary.LittleEndian.PutUint32(p[0:4], math.Float32bits(float32(velocity)))
	binary.LittleEndian.PutUint32(p[4:8], math.Float32bits(float32(torque)))
	return bus.NewFrame(JointDynamicsID(joint), p[:])
}

// EncodePosePosition builds the end-effector position telemetry frame.
func EncodePosePosition(x, y, z float64) (bus.Frame, error) {
	var p [6]byte
	binary.LittleEndian.PutUint16(p[0:2], uint16(int16(x*1000.0)))
	binary.LittleEndian.PutUint16(p[2:4], uint16(int16(y*1000.0)))
	binary.LittleEndian.PutUint16(p[4:6], uint16(int16(z*1000.0)))
	return bus.NewFrame(idPosePosition, p[:])
}

// EncodePoseOrientation builds both orientation telemetry frames for the
// quaternion (w, x, y, z).
func EncodePoseOrientation(w, x, y, z float64) (bus.Frame, bus.Frame, error) {
	var a, b [8]byte
	binary.LittleEndian.PutUint32(a[0:4], math.Float32bits(float32(w)))
	binary.LittleEndian.PutUint32(a[4:8], math.Float32bits(float32(x)))
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(float32(y)))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(float32(z)))
	fa, err := bus.NewFrame(idPoseOrientationA, a[:])
	if err != nil {
		return bus.Frame{}, bus.Frame{}, err
	}
	fb, err := bus.NewFrame(idPoseOrientationB, b[:])
	if err != nil {
		return bus.Frame{}, bus.Frame{}, err
	}
	return fa, fb, nil
}

// EncodeGripperTelemetry builds the gripper telemetry frame.
func EncodeGripperTelemetry(width, force float64, moving bool) (bus.Frame, error) {
	var p [5]byte
	binary.LittleEndian.PutUint16(p[0:2], uint16(width*10000.0))
	binary.LittleEndian.PutUint16(p[2:4], uint16(int16(force*10.0)))
	if moving {
		p[4] = 0x01
	}
	return bus.NewFrame(idGripper, p[:])
}

// EncodeDiagPower builds the power diagnostics telemetry frame.
func EncodeDiagPower(voltage, current, temperature float64) (bus.Frame, error) {
	var p [6]byte
	binary.LittleEndian.PutUint16(p[0:2], uint16(voltage*10.0))
	binary.LittleEndian.PutUint16(p[2:4], uint16(int16(current*100.0)))
	binary.LittleEndian.PutUint16(p[4:6], uint16(int16(temperature*10.0)))
	return bus.NewFrame(idDiagPower, p[:])
}

// EncodeDiagStatus builds the status diagnostics telemetry frame: the
// enabled flag and mode the lifecycle handshakes wait on.
func EncodeDiagStatus(enabled bool, mode state.Mode, fault uint16) (bus.Frame, error) {
	var p [4]byte
	if enabled {
		p[0] = 0x01
	}
	p[1] = byte(mode)
	binary.LittleEndian.PutUint16(p[2:4], fault)
	return bus.NewFrame(idDiagStatus, p[:])
}
