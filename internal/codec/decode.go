package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/tetra-robotics/armlink/internal/bus"
	"github.com/tetra-robotics/armlink/internal/state"
	"github.com/tetra-robotics/armlink/internal/units"
)

var (
	// ErrUnknownFrame reports an identifier this codec does not map to a
	// state group. The pipeline skips such frames without failing.
	ErrUnknownFrame = errors.New("codec: unknown frame id")

	// ErrMalformed reports a payload whose length does not match its id.
	ErrMalformed = errors.New("codec: malformed payload")

	// ErrOutOfRange reports a decoded value outside its plausible
	// physical range. The frame is rejected before any merge.
	ErrOutOfRange = errors.New("codec: value out of range")
)

// Update is the decoded content of one telemetry frame: the group it
// belongs to, the validity bits it contributes, and the sub-field values.
// Only the fields selected by Mask are meaningful.
type Update struct {
	Group state.Group
	Mask  uint32

	// Joint groups. Joint is always a valid index (< state.NumJoints);
	// Decode rejects out-of-range indices before they can be used.
	Joint    int
	Angle    float64 // rad
	Velocity float64 // rad/s
	Torque   float64 // Nm

	// End pose.
	PosX, PosY, PosZ       float64 // m
	OriW, OriX, OriY, OriZ float64 // quaternion components

	// Gripper.
	Width  float64 // m
	Force  float64 // N
	Moving bool

	// Diagnostics.
	BusVoltage  float64 // V
	BusCurrent  float64 // A
	Temperature float64 // degrees C
	Enabled     bool
	Mode        state.Mode
	FaultCode   uint16
}

// Decode maps a received frame to a typed state update. It validates
// payload length, joint index and value plausibility; a frame that fails
// any check contributes nothing to state.
func Decode(f bus.Frame) (Update, error) {
	group, ok := Classify(f.ID)
	if !ok {
		return Update{}, fmt.Errorf("%w: 0x%03X", ErrUnknownFrame, f.ID)
	}

	p := f.Payload()
	switch group {
	case state.GroupJointPositions:
		return decodeJointPosition(f.ID, p)
	case state.GroupJointDynamics:
		return decodeJointDynamics(f.ID, p)
	case state.GroupEndPose:
		return decodeEndPose(f.ID, p)
	case state.GroupGripper:
		return decodeGripper(p)
	case state.GroupDiagnostics:
		return decodeDiagnostics(f.ID, p)
	default:
		return Update{}, fmt.Errorf("%w: 0x%03X", ErrUnknownFrame, f.ID)
	}
}

func decodeJointPosition(id uint32, p []byte) (Update, error) {
	joint := int(id - baseJointPosition)
	if joint < 0 || joint >= state.NumJoints {
		return Update{}, fmt.Errorf("%w: joint index %d", ErrOutOfRange, joint)
	}
	if len(p) != 4 {
		return Update{}, fmt.Errorf("%w: joint position wants 4 bytes, got %d", ErrMalformed, len(p))
	}
	angle := float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	if !units.InRange(angle, units.MaxJointAngleRad) {
		return Update{}, fmt.Errorf("%w: joint %d angle %g", ErrOutOfRange, joint, angle)
	}
	return Update{
		Group: state.GroupJointPositions,
		Mask:  state.JointBit(joint),
		Joint: joint,
		Angle: angle,
	}, nil
}

func decodeJointDynamics(id uint32, p []byte) (Update, error) {
	joint := int(id - baseJointDynamics)
	if joint < 0 || joint >= state.NumJoints {
		return Update{}, fmt.Errorf("%w: joint index %d", ErrOutOfRange, joint)
	}
	if len(p) != 8 {
		return Update{}, fmt.Errorf("%w: joint dynamics wants 8 bytes, got %d", ErrMalformed, len(p))
	}
	vel := float64(math.Float32frombits(binary.LittleEndian.Uint32(p[0:4])))
	torque := float64(math.Float32frombits(binary.LittleEndian.Uint32(p[4:8])))
	if !units.InRange(vel, units.MaxJointVelocityRadPerSec) {
		return Update{}, fmt.Errorf("%w: joint %d velocity %g", ErrOutOfRange, joint, vel)
	}
	if !units.InRange(torque, units.MaxJointTorqueNm) {
		return Update{}, fmt.Errorf("%w: joint %d torque %g", ErrOutOfRange, joint, torque)
	}
	return Update{
		Group:    state.GroupJointDynamics,
		Mask:     state.JointBit(joint),
		Joint:    joint,
		Velocity: vel,
		Torque:   torque,
	}, nil
}

// quaternionSlack allows slightly denormalised orientation components from
// fixed-point controllers.
const quaternionSlack = 1.1

func decodeEndPose(id uint32, p []byte) (Update, error) {
	switch id {
	case idPosePosition:
		if len(p) != 6 {
			return Update{}, fmt.Errorf("%w: pose position wants 6 bytes, got %d", ErrMalformed, len(p))
		}
		// Millimetre fixed point in the base frame.
		x := float64(int16(binary.LittleEndian.Uint16(p[0:2]))) / 1000.0
		y := float64(int16(binary.LittleEndian.Uint16(p[2:4]))) / 1000.0
		z := float64(int16(binary.LittleEndian.Uint16(p[4:6]))) / 1000.0
		for _, v := range [3]float64{x, y, z} {
			if !units.InRange(v, units.MaxReachM) {
				return Update{}, fmt.Errorf("%w: pose coordinate %g", ErrOutOfRange, v)
			}
		}
		return Update{
			Group: state.GroupEndPose,
			Mask:  state.PoseFieldPosition,
			PosX:  x, PosY: y, PosZ: z,
		}, nil

	case idPoseOrientationA:
		w, x, err := decodeQuatHalf(p)
		if err != nil {
			return Update{}, err
		}
		return Update{
			Group: state.GroupEndPose,
			Mask:  state.PoseFieldOrientationA,
			OriW:  w, OriX: x,
		}, nil

	case idPoseOrientationB:
		y, z, err := decodeQuatHalf(p)
		if err != nil {
			return Update{}, err
		}
		return Update{
			Group: state.GroupEndPose,
			Mask:  state.PoseFieldOrientationB,
			OriY:  y, OriZ: z,
		}, nil
	}
	return Update{}, fmt.Errorf("%w: 0x%03X", ErrUnknownFrame, id)
}

func decodeQuatHalf(p []byte) (float64, float64, error) {
	if len(p) != 8 {
		return 0, 0, fmt.Errorf("%w: orientation wants 8 bytes, got %d", ErrMalformed, len(p))
	}
	a := float64(math.Float32frombits(binary.LittleEndian.Uint32(p[0:4])))
	b := float64(math.Float32frombits(binary.LittleEndian.Uint32(p[4:8])))
	if !units.InRange(a, quaternionSlack) || !units.InRange(b, quaternionSlack) {
		return 0, 0, fmt.Errorf("%w: orientation component", ErrOutOfRange)
	}
	return a, b, nil
}

func decodeGripper(p []byte) (Update, error) {
	if len(p) != 5 {
		return Update{}, fmt.Errorf("%w: gripper wants 5 bytes, got %d", ErrMalformed, len(p))
	}
	width := float64(binary.LittleEndian.Uint16(p[0:2])) / 10000.0 // 0.1 mm
	force := float64(int16(binary.LittleEndian.Uint16(p[2:4]))) / 10.0
	if !units.InRange(width, units.MaxGripperWidthM) {
		return Update{}, fmt.Errorf("%w: gripper width %g", ErrOutOfRange, width)
	}
	if !units.InRange(force, units.MaxGripperForceN) {
		return Update{}, fmt.Errorf("%w: gripper force %g", ErrOutOfRange, force)
	}
	return Update{
		Group:  state.GroupGripper,
		Mask:   state.GripperFieldAll,
		Width:  width,
		Force:  force,
		Moving: p[4]&0x01 != 0,
	}, nil
}

func decodeDiagnostics(id uint32, p []byte) (Update, error) {
	switch id {
	case idDiagPower:
		if len(p) != 6 {
			return Update{}, fmt.Errorf("%w: diag power wants 6 bytes, got %d", ErrMalformed, len(p))
		}
		return Update{
			Group:       state.GroupDiagnostics,
			Mask:        state.DiagFieldPower,
			BusVoltage:  float64(binary.LittleEndian.Uint16(p[0:2])) / 10.0,
			BusCurrent:  float64(int16(binary.LittleEndian.Uint16(p[2:4]))) / 100.0,
			Temperature: float64(int16(binary.LittleEndian.Uint16(p[4:6]))) / 10.0,
		}, nil

	case idDiagStatus:
		if len(p) != 4 {
			return Update{}, fmt.Errorf("%w: diag status wants 4 bytes, got %d", ErrMalformed, len(p))
		}
		mode := state.Mode(p[1])
		if !mode.Valid() {
			return Update{}, fmt.Errorf("%w: mode %d", ErrOutOfRange, p[1])
		}
		return Update{
			Group:     state.GroupDiagnostics,
			Mask:      state.DiagFieldStatus,
			Enabled:   p[0]&0x01 != 0,
			Mode:      mode,
			FaultCode: binary.LittleEndian.Uint16(p[2:4]),
		}, nil
	}
	return Update{}, fmt.Errorf("%w: 0x%03X", ErrUnknownFrame, id)
}
