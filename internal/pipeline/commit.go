package pipeline

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tetra-robotics/armlink/internal/bus"
	"github.com/tetra-robotics/armlink/internal/codec"
	"github.com/tetra-robotics/armlink/internal/monitoring"
	"github.com/tetra-robotics/armlink/internal/state"
	"github.com/tetra-robotics/armlink/internal/timeutil"
)

// groupProgress is the commit bookkeeping for one group: which sub-fields
// have arrived since the last commit and when.
type groupProgress struct {
	mask       uint32
	lastUpdate time.Duration // frame time of the newest pending sub-field
	lastCommit time.Duration // frame time of the last commit
	committed  bool          // false until the group's first commit
}

// committer runs the frame-group commit protocol. It is owned exclusively
// by the RX loop: the accumulators are plain fields and are never exposed,
// so the per-frame path needs no synchronisation. Only the Store publish
// at commit time is visible to other goroutines, and that is one atomic
// pointer swap.
type committer struct {
	store         *state.Store
	clock         timeutil.Clock
	commitTimeout time.Duration
	staleTimeout  time.Duration
	log           zerolog.Logger
	limiter       *monitoring.LogLimiter

	progress [state.GroupCount]groupProgress

	// Pending accumulators, one per group. Values land here as frames
	// decode and are copied out whole on commit.
	jointPos state.JointPositions
	jointDyn state.JointDynamics
	endPose  state.EndPose
	gripper  state.Gripper
	diag     state.Diagnostics

	// Counters are read by Stats from other goroutines.
	commits       atomic.Uint64
	decodeErrors  atomic.Uint64
	unknownFrames atomic.Uint64
	staleResets   atomic.Uint64
}

func newCommitter(store *state.Store, clock timeutil.Clock, commitTimeout, staleTimeout, logInterval time.Duration, log zerolog.Logger) *committer {
	return &committer{
		store:         store,
		clock:         clock,
		commitTimeout: commitTimeout,
		staleTimeout:  staleTimeout,
		log:           log,
		limiter:       monitoring.NewLogLimiter(logInterval),
	}
}

// process runs the commit protocol for one received frame: decode, merge
// into the group's accumulator, then commit if the group is complete or
// its commit deadline has passed. A malformed or out-of-range frame is
// counted and skipped; it never stops the loop.
func (c *committer) process(f bus.Frame) {
	u, err := codec.Decode(f)
	if err != nil {
		if errors.Is(err, codec.ErrUnknownFrame) {
			// Other nodes' traffic; not a fault.
			c.unknownFrames.Add(1)
			return
		}
		c.decodeErrors.Add(1)
		if ok, suppressed := c.limiter.Allow(c.clock.Monotonic()); ok {
			c.log.Warn().Err(err).Uint64("suppressed", suppressed).
				Msg("skipping undecodable frame")
		}
		return
	}

	p := &c.progress[u.Group]
	if !p.committed && p.mask == 0 {
		// A group that has never committed anchors its window at its
		// own first frame, so elapsed starts at zero. The first
		// complete group therefore commits immediately through the
		// mask check below, and a first group that never completes
		// still publishes its partial snapshot once the window
		// passes. Skipping the first frame here instead would wrongly
		// suppress the first publish.
		p.lastCommit = f.Timestamp
	}
	c.merge(u)
	p.mask |= u.Mask
	p.lastUpdate = f.Timestamp

	// elapsed is measured from the last commit (or the anchor above).
	elapsed := f.Timestamp - p.lastCommit

	if p.mask == u.Group.FullMask() || elapsed > c.commitTimeout {
		c.commit(u.Group, f.Timestamp)
	}
}

// merge writes the decoded sub-field values into the group accumulator.
func (c *committer) merge(u codec.Update) {
	switch u.Group {
	case state.GroupJointPositions:
		c.jointPos.Angles[u.Joint] = u.Angle

	case state.GroupJointDynamics:
		c.jointDyn.Velocities[u.Joint] = u.Velocity
		c.jointDyn.Torques[u.Joint] = u.Torque

	case state.GroupEndPose:
		if u.Mask&state.PoseFieldPosition != 0 {
			c.endPose.Position = r3.Vec{X: u.PosX, Y: u.PosY, Z: u.PosZ}
		}
		if u.Mask&state.PoseFieldOrientationA != 0 {
			c.endPose.Orientation.Real = u.OriW
			c.endPose.Orientation.Imag = u.OriX
		}
		if u.Mask&state.PoseFieldOrientationB != 0 {
			c.endPose.Orientation.Jmag = u.OriY
			c.endPose.Orientation.Kmag = u.OriZ
		}

	case state.GroupGripper:
		c.gripper.Width = u.Width
		c.gripper.Force = u.Force
		c.gripper.Moving = u.Moving

	case state.GroupDiagnostics:
		if u.Mask&state.DiagFieldPower != 0 {
			c.diag.BusVoltage = u.BusVoltage
			c.diag.BusCurrent = u.BusCurrent
			c.diag.Temperature = u.Temperature
		}
		if u.Mask&state.DiagFieldStatus != 0 {
			c.diag.Enabled = u.Enabled
			c.diag.Mode = u.Mode
			c.diag.FaultCode = u.FaultCode
		}
	}
}

// commit publishes the group's accumulator as a fresh snapshot and resets
// it for the next cycle.
func (c *committer) commit(g state.Group, stamp time.Duration) {
	p := &c.progress[g]
	meta := state.Meta{
		Valid:    p.mask,
		Stamp:    stamp,
		Captured: c.clock.Monotonic(),
	}

	switch g {
	case state.GroupJointPositions:
		snap := c.jointPos
		snap.Meta = meta
		c.store.PublishJointPositions(snap)
		c.jointPos = state.JointPositions{}

	case state.GroupJointDynamics:
		snap := c.jointDyn
		snap.Meta = meta
		c.store.PublishJointDynamics(snap)
		c.jointDyn = state.JointDynamics{}

	case state.GroupEndPose:
		snap := c.endPose
		snap.Meta = meta
		c.store.PublishEndPose(snap)
		c.endPose = state.EndPose{}

	case state.GroupGripper:
		snap := c.gripper
		snap.Meta = meta
		c.store.PublishGripper(snap)
		c.gripper = state.Gripper{}

	case state.GroupDiagnostics:
		snap := c.diag
		snap.Meta = meta
		c.store.PublishDiagnostics(snap)
		c.diag = state.Diagnostics{}
	}

	p.mask = 0
	p.lastCommit = stamp
	p.committed = true
	c.commits.Add(1)
}

// sweepStale discards accumulators whose traffic stopped mid-group. It
// runs on every loop iteration, including receive timeouts, so a stalled
// bus cannot leave half-built state pending forever. The check and the
// reset are two steps; a frame landing between them is simply processed
// on the next iteration, a deliberate bounded single-frame loss window
// that avoids locking the hot path.
func (c *committer) sweepStale(now time.Duration) {
	for i := range c.progress {
		p := &c.progress[i]
		if p.mask == 0 || now-p.lastUpdate <= c.staleTimeout {
			continue
		}
		g := state.Group(i)
		c.clearAccumulator(g)
		p.mask = 0
		c.staleResets.Add(1)
		c.log.Debug().Stringer("group", g).Msg("discarding stale partial group")
	}
}

func (c *committer) clearAccumulator(g state.Group) {
	switch g {
	case state.GroupJointPositions:
		c.jointPos = state.JointPositions{}
	case state.GroupJointDynamics:
		c.jointDyn = state.JointDynamics{}
	case state.GroupEndPose:
		c.endPose = state.EndPose{}
	case state.GroupGripper:
		c.gripper = state.Gripper{}
	case state.GroupDiagnostics:
		c.diag = state.Diagnostics{}
	}
}
