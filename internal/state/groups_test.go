package state

import "testing"

func TestFullMask(t *testing.T) {
	tests := []struct {
		group Group
		want  uint32
	}{
		{GroupJointPositions, 0x3F},
		{GroupJointDynamics, 0x3F},
		{GroupEndPose, PoseFieldPosition | PoseFieldOrientationA | PoseFieldOrientationB},
		{GroupGripper, GripperFieldAll},
		{GroupDiagnostics, DiagFieldPower | DiagFieldStatus},
	}
	for _, tt := range tests {
		if got := tt.group.FullMask(); got != tt.want {
			t.Errorf("%s.FullMask() = 0x%X, want 0x%X", tt.group, got, tt.want)
		}
	}
}

func TestJointBit(t *testing.T) {
	var union uint32
	for j := 0; j < NumJoints; j++ {
		union |= JointBit(j)
	}
	if union != JointMaskAll {
		t.Errorf("union of joint bits = 0x%X, want 0x%X", union, JointMaskAll)
	}
}

func TestMetaComplete(t *testing.T) {
	m := Meta{Valid: JointMaskAll}
	if !m.Complete(GroupJointPositions) {
		t.Error("full joint mask should be complete")
	}
	m.Valid = JointMaskAll &^ JointBit(3)
	if m.Complete(GroupJointPositions) {
		t.Error("missing joint should not be complete")
	}
	m.Valid = DiagFieldStatus
	if m.Complete(GroupDiagnostics) {
		t.Error("status-only diagnostics should not be complete")
	}
}

func TestModeValid(t *testing.T) {
	for _, m := range []Mode{ModeIdle, ModeJointPosition, ModeCartesian, ModeTorque} {
		if !m.Valid() {
			t.Errorf("mode %s should be valid", m)
		}
	}
	if Mode(200).Valid() {
		t.Error("mode 200 should be invalid")
	}
	if Mode(200).String() != "invalid" {
		t.Errorf("Mode(200).String() = %q", Mode(200).String())
	}
}

func TestGroupString(t *testing.T) {
	names := map[Group]string{
		GroupJointPositions: "joint_positions",
		GroupJointDynamics:  "joint_dynamics",
		GroupEndPose:        "end_pose",
		GroupGripper:        "gripper",
		GroupDiagnostics:    "diagnostics",
	}
	for g, want := range names {
		if g.String() != want {
			t.Errorf("Group(%d).String() = %q, want %q", g, g.String(), want)
		}
	}
}
