package state

import "sync/atomic"

// Store holds the latest committed snapshot for each group. Publishing
// swaps one pointer; reads dereference whatever pointer is current. A
// reader therefore always sees a fully-formed snapshot from some single
// publish, never a mix of two, and neither side ever blocks the other.
//
// Groups are mutually independent; no cross-group ordering is implied.
type Store struct {
	jointPositions atomic.Pointer[JointPositions]
	jointDynamics  atomic.Pointer[JointDynamics]
	endPose        atomic.Pointer[EndPose]
	gripper        atomic.Pointer[Gripper]
	diagnostics    atomic.Pointer[Diagnostics]
}

// NewStore returns an empty store. Every read reports ok=false until the
// first publish for that group.
func NewStore() *Store {
	return &Store{}
}

// PublishJointPositions atomically replaces the joint-position snapshot.
// The value is copied; the caller may reuse v.
func (s *Store) PublishJointPositions(v JointPositions) {
	s.jointPositions.Store(&v)
}

// PublishJointDynamics atomically replaces the joint-dynamics snapshot.
func (s *Store) PublishJointDynamics(v JointDynamics) {
	s.jointDynamics.Store(&v)
}

// PublishEndPose atomically replaces the end-pose snapshot.
func (s *Store) PublishEndPose(v EndPose) {
	s.endPose.Store(&v)
}

// PublishGripper atomically replaces the gripper snapshot.
func (s *Store) PublishGripper(v Gripper) {
	s.gripper.Store(&v)
}

// PublishDiagnostics atomically replaces the diagnostics snapshot.
func (s *Store) PublishDiagnostics(v Diagnostics) {
	s.diagnostics.Store(&v)
}

// JointPositions returns the latest joint-position snapshot.
func (s *Store) JointPositions() (JointPositions, bool) {
	p := s.jointPositions.Load()
	if p == nil {
		return JointPositions{}, false
	}
	return *p, true
}

// JointDynamics returns the latest joint-dynamics snapshot.
func (s *Store) JointDynamics() (JointDynamics, bool) {
	p := s.jointDynamics.Load()
	if p == nil {
		return JointDynamics{}, false
	}
	return *p, true
}

// EndPose returns the latest end-pose snapshot.
func (s *Store) EndPose() (EndPose, bool) {
	p := s.endPose.Load()
	if p == nil {
		return EndPose{}, false
	}
	return *p, true
}

// Gripper returns the latest gripper snapshot.
func (s *Store) Gripper() (Gripper, bool) {
	p := s.gripper.Load()
	if p == nil {
		return Gripper{}, false
	}
	return *p, true
}

// Diagnostics returns the latest diagnostics snapshot.
func (s *Store) Diagnostics() (Diagnostics, bool) {
	p := s.diagnostics.Load()
	if p == nil {
		return Diagnostics{}, false
	}
	return *p, true
}
