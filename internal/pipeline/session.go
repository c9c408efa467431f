package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tetra-robotics/armlink/internal/bus"
	"github.com/tetra-robotics/armlink/internal/config"
	"github.com/tetra-robotics/armlink/internal/monitoring"
	"github.com/tetra-robotics/armlink/internal/state"
	"github.com/tetra-robotics/armlink/internal/timeutil"
)

// ErrJoinTimeout reports that a pipeline loop failed to exit within the
// configured join window during shutdown. The session is torn down
// regardless; a stuck loop must not hang teardown.
var ErrJoinTimeout = errors.New("pipeline: loop did not stop within join timeout")

// Session owns the two pipeline loops and everything they share. It is
// created by Start and released exactly once by Stop; the lifecycle layer
// wraps it in the typed state values and moves it between them.
type Session struct {
	id        uuid.UUID
	transport bus.Transport
	rx        bus.ReceiveEndpoint
	tx        bus.SendEndpoint

	store   *state.Store
	hooks   *Hooks
	monitor *Monitor
	out     *outgoing
	commit  *committer
	clock   timeutil.Clock
	log     zerolog.Logger

	receiveTimeout time.Duration
	joinTimeout    time.Duration

	// stopping is the one cooperative cancellation flag both loops poll.
	// Go's sync/atomic provides sequentially consistent ordering, so any
	// write made before the flag is set is visible to a loop that
	// observes it. The plain counters below deliberately use the same
	// cheap atomics; they carry no ordering obligations.
	stopping atomic.Bool
	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	rxDone   chan struct{}
	txDone   chan struct{}

	fatal atomic.Pointer[sessionError]

	framesReceived atomic.Uint64
	framesSent     atomic.Uint64
	sendErrors     atomic.Uint64
}

type sessionError struct {
	op  string
	err error
}

// Stats is a point-in-time snapshot of the session counters.
type Stats struct {
	FramesReceived uint64
	FramesSent     uint64
	SendErrors     uint64
	Commits        uint64
	DecodeErrors   uint64
	UnknownFrames  uint64
	StaleResets    uint64
}

// Start opens a session over the transport and launches the RX and TX
// loops. A nil tuning uses defaults; a nil clock uses the real clock.
func Start(transport bus.Transport, tuning *config.Tuning, clock timeutil.Clock) *Session {
	if tuning == nil {
		tuning = config.DefaultTuning()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	id := uuid.New()
	log := monitoring.Logger().With().Str("session", id.String()).Logger()
	rx, tx := bus.Split(transport)
	echo := newEchoFilter(tuning.GetEchoRingSize(), tuning.GetEchoSuppressWindow())
	store := state.NewStore()

	s := &Session{
		id:             id,
		transport:      transport,
		rx:             rx,
		tx:             tx,
		store:          store,
		hooks:          NewHooks(tuning.GetHookQueueCapacity(), echo),
		monitor:        NewMonitor(clock),
		out:            newOutgoing(tuning.GetCommandQueueCapacity()),
		clock:          clock,
		log:            log,
		receiveTimeout: tuning.GetReceiveTimeout(),
		joinTimeout:    tuning.GetJoinTimeout(),
		stopCh:         make(chan struct{}),
		rxDone:         make(chan struct{}),
		txDone:         make(chan struct{}),
	}
	s.commit = newCommitter(store, clock,
		tuning.GetGroupCommitTimeout(), tuning.GetStaleTimeout(),
		tuning.GetDecodeLogInterval(), log)

	s.running.Store(true)
	go s.rxLoop()
	go s.txLoop()
	s.log.Info().Msg("session started")
	return s
}

// rxLoop receives frames until shutdown or a fatal transport error. Per
// frame: commit protocol, hook dispatch, connection monitor, in that
// order. The only blocking call is the bounded transport receive.
func (s *Session) rxLoop() {
	defer close(s.rxDone)
	for !s.stopping.Load() {
		f, err := s.rx.Receive(s.receiveTimeout)
		now := s.clock.Monotonic()
		if err != nil {
			if errors.Is(err, bus.ErrReceiveTimeout) {
				s.commit.sweepStale(now)
				continue
			}
			s.fail("receive", err)
			return
		}

		f.Dir = bus.DirReceive
		if f.Timestamp == 0 {
			f.Timestamp = now
		}
		s.framesReceived.Add(1)

		s.commit.process(f)
		s.hooks.DispatchReceived(f, now)
		s.monitor.MarkFrame()
		s.commit.sweepStale(now)
	}
}

// txLoop drains the outgoing hand-off and sends. Observers hear about a
// frame only after the transport confirmed the send; a frame that never
// reached the bus is never recorded.
func (s *Session) txLoop() {
	defer close(s.txDone)
	for {
		if s.stopping.Load() {
			return
		}

		f, ok := s.out.take()
		if !ok {
			select {
			case <-s.out.wake:
			case <-s.stopCh:
				return
			}
			continue
		}

		if err := s.tx.Send(f); err != nil {
			s.sendErrors.Add(1)
			if errors.Is(err, bus.ErrClosed) {
				s.fail("send", err)
				return
			}
			s.log.Error().Err(err).Uint32("id", f.ID).Msg("send failed")
			continue
		}

		now := s.clock.Monotonic()
		f.Dir = bus.DirTransmit
		f.Timestamp = now
		s.framesSent.Add(1)
		s.hooks.DispatchSent(f, now)
	}
}

// fail records the first fatal error, marks the session not running and
// wakes both loops. Later failures keep the original cause.
func (s *Session) fail(op string, err error) {
	s.fatal.CompareAndSwap(nil, &sessionError{op: op, err: err})
	s.running.Store(false)
	s.signalStop()
	s.log.Error().Err(err).Str("op", op).Msg("transport fatal, session stopped")
}

func (s *Session) signalStop() {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		close(s.stopCh)
	})
}

// Stop shuts the loops down and closes the transport. Joining each loop
// is bounded by the configured join timeout so a stuck loop cannot hang
// teardown. Stop is idempotent; only the first call does the work.
func (s *Session) Stop() error {
	s.signalStop()
	s.running.Store(false)

	var joinErr error
	for _, done := range []chan struct{}{s.rxDone, s.txDone} {
		timer := s.clock.NewTimer(s.joinTimeout)
		select {
		case <-done:
			timer.Stop()
		case <-timer.C():
			joinErr = ErrJoinTimeout
		}
	}

	closeErr := s.transport.Close()
	if closeErr != nil && errors.Is(closeErr, bus.ErrClosed) {
		closeErr = nil
	}
	s.hooks.CloseAll()
	s.log.Info().Msg("session stopped")
	return errors.Join(joinErr, closeErr)
}

// Running reports whether both loops are live. It turns false after Stop
// or after a fatal transport error.
func (s *Session) Running() bool {
	return s.running.Load()
}

// Err returns the fatal transport error that stopped the session, if any.
func (s *Session) Err() error {
	if e := s.fatal.Load(); e != nil {
		return e.err
	}
	return nil
}

// ID returns the session identity used in logs.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Command enqueues a one-shot frame on the reliable queue. It fails with
// ErrQueueFull rather than blocking.
func (s *Session) Command(f bus.Frame) error {
	return s.out.pushCommand(f)
}

// SetTarget replaces the pending continuous-control setpoint; the newest
// target always wins.
func (s *Session) SetTarget(f bus.Frame) {
	s.out.setTarget(f)
}

// RegisterHook adds a frame observer with the configured queue capacity.
func (s *Session) RegisterHook() *Hook {
	return s.hooks.Register()
}

// Store returns the snapshot store for wait-free state reads.
func (s *Session) Store() *state.Store {
	return s.store
}

// Monitor returns the connection monitor.
func (s *Session) Monitor() *Monitor {
	return s.monitor
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		FramesReceived: s.framesReceived.Load(),
		FramesSent:     s.framesSent.Load(),
		SendErrors:     s.sendErrors.Load(),
		Commits:        s.commit.commits.Load(),
		DecodeErrors:   s.commit.decodeErrors.Load(),
		UnknownFrames:  s.commit.unknownFrames.Load(),
		StaleResets:    s.commit.staleResets.Load(),
	}
}
