package lifecycle

import (
	"github.com/tetra-robotics/armlink/internal/codec"
	"github.com/tetra-robotics/armlink/internal/monitoring"
	"github.com/tetra-robotics/armlink/internal/pipeline"
	"github.com/tetra-robotics/armlink/internal/state"
)

// disableGuard converts "partial failure mid-handshake" into "motors end
// disabled". It holds its own reference to the session and, unless told
// the transition succeeded, queues a disable command on release. The
// guard never takes ownership; it only issues the safety command.
type disableGuard struct {
	sess     *pipeline.Session
	disarmed bool
}

func newDisableGuard(sess *pipeline.Session) *disableGuard {
	return &disableGuard{sess: sess}
}

// success marks the transition complete; release becomes a no-op.
func (g *disableGuard) success() {
	g.disarmed = true
}

// release issues a best-effort disable unless the transition succeeded.
func (g *disableGuard) release() {
	if g.disarmed {
		return
	}
	if err := g.sess.Command(codec.EncodeControl(false, state.ModeIdle)); err != nil {
		log := monitoring.Logger()
		log.Error().Err(err).
			Msg("failed to queue safety disable after aborted transition")
	}
}
