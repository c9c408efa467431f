// Package units provides shared constants and validation for the physical
// quantities carried on the arm bus.
package units

import "math"

// Plausibility limits applied before a decoded value may be merged into a
// state snapshot. Values outside these ranges indicate a corrupted or
// misclassified frame and are rejected, never published.
const (
	// MaxJointAngleRad bounds a joint position. Two full turns covers
	// every continuous-rotation wrist on supported arms.
	MaxJointAngleRad = 4 * math.Pi

	// MaxJointVelocityRadPerSec bounds a joint velocity reading.
	MaxJointVelocityRadPerSec = 100.0

	// MaxJointTorqueNm bounds a joint torque reading.
	MaxJointTorqueNm = 1000.0

	// MaxReachM bounds a Cartesian end-effector coordinate.
	MaxReachM = 5.0

	// MaxGripperWidthM bounds a gripper opening.
	MaxGripperWidthM = 0.5

	// MaxGripperForceN bounds a gripper force reading.
	MaxGripperForceN = 500.0
)

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// InRange reports whether v is finite and |v| <= limit.
func InRange(v, limit float64) bool {
	return IsFinite(v) && math.Abs(v) <= limit
}
