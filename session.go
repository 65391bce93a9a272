package rewind

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/rewind-engine/rewind/internal/rtrace"
	"github.com/rewind-engine/rewind/rframe"
	"github.com/rewind-engine/rewind/rinput"
	"github.com/rewind-engine/rewind/rpeer"
	"github.com/rewind-engine/rewind/rsnap"
	"github.com/rewind-engine/rewind/rstep"
)

// How many previous local inputs are retransmitted alongside each
// new one. The transport is unreliable and there is no ack/resend
// machinery, so a little redundancy is what keeps a single dropped
// datagram from stalling the remote for a whole probe interval.
const inputRedundancy = 2

// Session is a rollback netcode session for one match.
//
// All methods must be called from a single goroutine, the tick loop.
// Background transport I/O stays on its own goroutines and hands
// packets over inside [rpeer.Channel.Poll].
//
// The session owns its snapshot and input history exclusively;
// the snapshot for frame f always holds the world state *before*
// simulating f, which is the state a rollback to f restores.
type Session struct {
	log    *slog.Logger
	tracer rtrace.Tracer

	step  rstep.Stepper
	peers map[rframe.Player]rpeer.Channel

	localPlayer    rframe.Player
	numPlayers     int
	window         int
	inputDelay     int
	stallThreshold int
	defaultInput   rframe.Input

	state State

	// current is the next frame to simulate;
	// frames 0..current-1 have been simulated.
	// confirmed is the highest frame with all inputs confirmed,
	// clamped to current so speculation depth is current-confirmed-1.
	current   rframe.Frame
	confirmed rframe.Frame

	inputs *rinput.Buffer
	snaps  *rsnap.Store

	// Serialized state after the most recent step (or replay).
	world []byte

	// Earliest mispredicted frame awaiting replay,
	// or NullFrame when no rollback is pending.
	// Multiple mispredictions collapse into this one marker:
	// a single linear replay from the earliest fixes them all.
	rollbackFrom rframe.Frame

	// Latest unverified checksum report per remote player.
	reports map[rframe.Player]checksumReport

	// Sticky terminal error; once set, every call returns it.
	err error
}

type checksumReport struct {
	frame    rframe.Frame
	checksum uint64
}

// AdvanceResult is the outcome of one [*Session.AdvanceFrame] call.
type AdvanceResult struct {
	// The most recently simulated frame.
	Frame rframe.Frame

	// The serialized world after that frame, for presentation.
	// This is the caller's copy; mutating it affects nothing.
	// Nil when Stalled.
	World []byte

	// True when the prediction window is exhausted and the session
	// did not advance. This is backpressure, not an error:
	// keep ticking, and the session resumes once confirmations arrive.
	Stalled bool
}

func newSession(log *slog.Logger, cfg SessionConfig) *Session {
	stall := cfg.StallThreshold
	if stall == 0 {
		stall = cfg.WindowSize
	}

	// History capacity has to cover everything simultaneously live:
	// the full window behind the confirmed frame, the speculation
	// range up to current, early remote arrivals up to a window
	// ahead, and delayed local inputs.
	capacity := 3*cfg.WindowSize + cfg.InputDelay + 2

	tp := cfg.TracerProvider
	if tp == nil {
		tp = rtrace.NopTracerProvider()
	}

	s := &Session{
		log:    log,
		tracer: tp.Tracer("rewind"),

		step:  cfg.Stepper,
		peers: cfg.Peers,

		localPlayer:    cfg.LocalPlayer,
		numPlayers:     cfg.NumPlayers,
		window:         cfg.WindowSize,
		inputDelay:     cfg.InputDelay,
		stallThreshold: stall,
		defaultInput:   cfg.DefaultInput,

		state: StateRunning,

		current:   0,
		confirmed: rframe.NullFrame,

		inputs: rinput.New(cfg.NumPlayers, capacity),
		snaps:  rsnap.New(capacity),

		world: bytes.Clone(cfg.InitialState),

		rollbackFrom: rframe.NullFrame,

		reports: make(map[rframe.Player]checksumReport),
	}

	s.snaps.Save(0, s.world)

	// With input delay, the first InputDelay frames run on the
	// neutral input for the local player; every peer does the same
	// for us, so these are confirmed by construction.
	for f := rframe.Frame(0); f < rframe.Frame(cfg.InputDelay); f++ {
		s.inputs.Set(cfg.LocalPlayer, f, cfg.DefaultInput, true)
	}

	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Frame returns the most recently simulated frame,
// or [rframe.NullFrame] before the first advance.
func (s *Session) Frame() rframe.Frame { return s.current - 1 }

// ConfirmedFrame returns the highest frame for which every player's
// input is confirmed, or [rframe.NullFrame] before any such frame.
func (s *Session) ConfirmedFrame() rframe.Frame { return s.confirmed }

// CurrentState returns a copy of the serialized world
// after the most recently simulated frame.
func (s *Session) CurrentState() []byte { return bytes.Clone(s.world) }

// Checksum returns the checksum of the retained snapshot for frame f.
// The snapshot for f is the state before simulating f.
func (s *Session) Checksum(f rframe.Frame) (uint64, bool) {
	return s.snaps.Checksum(f)
}

// SetStallThreshold adjusts how deep speculation may run
// before the session stalls.
// Callers typically derive the value from peer RTT
// (see [rpeer.Channel.RTT]); the signal tunes backpressure only
// and can never affect simulation results.
// The value is clamped to [1, WindowSize].
func (s *Session) SetStallThreshold(n int) {
	if n < 1 {
		n = 1
	}
	if n > s.window {
		n = s.window
	}
	s.stallThreshold = n
}

// AdvanceFrame drives one tick:
// it drains the peer channels, runs any pending rollback replay,
// checks peer checksum reports, and, unless the prediction window
// is exhausted, simulates one more frame with the local input
// and the best-known (confirmed or predicted) remote inputs.
//
// Only [DesyncError] and [PeerDisconnectedError] are returned;
// both are terminal for the match.
func (s *Session) AdvanceFrame(ctx context.Context, localInput rframe.Input) (AdvanceResult, error) {
	if s.err != nil {
		return AdvanceResult{}, s.err
	}

	if err := s.pollPeers(); err != nil {
		s.err = err
		return AdvanceResult{}, err
	}

	s.maybeRollback(ctx)

	if err := s.verifyReports(); err != nil {
		s.err = err
		return AdvanceResult{}, err
	}

	if s.speculationDepth() >= s.stallThreshold {
		if s.state != StateStalled {
			s.log.Warn(
				"Prediction window exhausted; stalling until confirmations arrive",
				"current", s.current,
				"confirmed", s.confirmed,
				"stall_threshold", s.stallThreshold,
			)
		}
		s.state = StateStalled
		return AdvanceResult{Frame: s.current - 1, Stalled: true}, nil
	}

	// The local input lands InputDelay frames ahead;
	// the frame simulated right now already has its local input
	// (set a few ticks ago, or prefilled at construction).
	target := s.current + rframe.Frame(s.inputDelay)
	s.inputs.Set(s.localPlayer, target, localInput, true)

	for p := 0; p < s.numPlayers; p++ {
		player := rframe.Player(p)
		if player == s.localPlayer || s.inputs.Has(player, s.current) {
			continue
		}
		s.inputs.Set(player, s.current, s.predict(player), false)
	}

	s.world = s.step.Step(s.world, s.inputs.Inputs(s.current))
	s.snaps.Save(s.current+1, s.world)
	s.current++

	s.updateConfirmed()
	s.evict()
	s.broadcastInput(target)

	s.state = StateRunning

	return AdvanceResult{
		Frame: s.current - 1,
		World: bytes.Clone(s.world),
	}, nil
}

// speculationDepth is how many simulated frames
// are still running on at least one predicted input.
func (s *Session) speculationDepth() int {
	return int(s.current - s.confirmed - 1)
}

// predict guesses a player's input for the current frame:
// repeat the previous frame's value (which chains back to the last
// confirmed input), falling back to the configured default.
func (s *Session) predict(p rframe.Player) rframe.Input {
	if s.current > 0 && s.inputs.Has(p, s.current-1) {
		in, _ := s.inputs.Get(p, s.current-1)
		return in
	}
	if in, ok := s.inputs.LastConfirmed(p); ok {
		return in
	}
	return s.defaultInput
}

func (s *Session) pollPeers() error {
	// Iterating player indexes in order instead of ranging the map,
	// so processing order is reproducible under test.
	for p := 0; p < s.numPlayers; p++ {
		player := rframe.Player(p)
		if player == s.localPlayer {
			continue
		}

		ch := s.peers[player]
		if !ch.IsConnected() {
			s.state = StateDisconnected
			return PeerDisconnectedError{Player: player}
		}

		for _, in := range ch.Poll() {
			s.receiveRemoteInput(player, in)
		}
	}
	return nil
}

// receiveRemoteInput applies one inbound report idempotently.
// Duplicates and late arrivals inside the window are absorbed;
// a confirmation that contradicts a prediction for an
// already-simulated frame schedules a rollback.
func (s *Session) receiveRemoteInput(p rframe.Player, in rpeer.Inbound) {
	if in.ConfirmedFrame != rframe.NullFrame {
		if r, ok := s.reports[p]; !ok || in.ConfirmedFrame > r.frame {
			s.reports[p] = checksumReport{
				frame:    in.ConfirmedFrame,
				checksum: in.ConfirmedChecksum,
			}
		}
	}

	f := in.Frame
	if f < 0 {
		return
	}
	if f <= s.confirmed-rframe.Frame(s.window) {
		// Ancient duplicate; its frame has left the window.
		return
	}
	if f > s.current+rframe.Frame(s.window) {
		// Too far ahead to store. A peer this far ahead of us
		// should itself be stalled; drop and let it resend.
		s.log.Warn(
			"Dropping input too far ahead of local simulation",
			"player", p,
			"frame", f,
			"current", s.current,
		)
		return
	}

	if s.inputs.Has(p, f) {
		stored, confirmed := s.inputs.Get(p, f)

		if confirmed {
			if stored != in.Input {
				// A remote contradicting its own confirmed input.
				// Not a local bug, so no panic, but nothing sane
				// to do with it either.
				s.log.Warn(
					"Ignoring conflicting re-delivery of confirmed input",
					"player", p,
					"frame", f,
				)
			}
			return
		}

		s.inputs.Set(p, f, in.Input, true)

		if stored != in.Input && f < s.current {
			// Misprediction on a frame we already simulated.
			if s.rollbackFrom == rframe.NullFrame || f < s.rollbackFrom {
				s.rollbackFrom = f
			}
		}
	} else {
		s.inputs.Set(p, f, in.Input, true)
	}

	s.updateConfirmed()
}

func (s *Session) updateConfirmed() {
	c := s.inputs.ConfirmedFrame()
	if c > s.current {
		// Inputs can be fully known ahead of the simulation
		// (input delay plus a fast remote), but the confirmed
		// frame never runs ahead of what has been simulated.
		c = s.current
	}
	s.confirmed = c
}

// maybeRollback replays from the earliest mispredicted frame
// to the present, overwriting the intermediate snapshots.
// It is a pure recomputation from {snapshot, input buffer}:
// rerunning it with no new information is a no-op by construction.
func (s *Session) maybeRollback(ctx context.Context) {
	if s.rollbackFrom == rframe.NullFrame {
		return
	}

	from := s.rollbackFrom
	s.rollbackFrom = rframe.NullFrame

	s.state = StateRollingBack

	_, span := s.tracer.Start(ctx, "rollback", rtrace.WithAttributes(
		rtrace.FrameAttr("rollback.from", from),
		rtrace.FrameAttr("rollback.current", s.current),
	))
	defer span.End()

	state, err := s.snaps.Load(from)
	if err != nil {
		// Every simulated frame in the window has a snapshot;
		// a miss here is a window sizing or eviction bug.
		panic(fmt.Errorf("BUG: %w during rollback", err))
	}

	for f := from; f < s.current; f++ {
		state = s.step.Step(state, s.inputs.Inputs(f))
		s.snaps.Save(f+1, state)
	}
	s.world = state

	s.state = StateRunning

	s.log.Debug(
		"Rolled back and replayed",
		"from", from,
		"frames", int(s.current-from),
	)
}

// verifyReports compares peer checksum reports against local
// snapshots once both sides consider the frame stable.
func (s *Session) verifyReports() error {
	for p := 0; p < s.numPlayers; p++ {
		player := rframe.Player(p)
		r, ok := s.reports[player]
		if !ok {
			continue
		}

		if r.frame > s.confirmed {
			// Our snapshot at that frame may still be rewritten
			// by a rollback; verify on a later tick.
			continue
		}

		delete(s.reports, player)

		local, ok := s.snaps.Checksum(r.frame)
		if !ok {
			// Evicted before we could verify. The next report
			// from this peer will cover a newer frame.
			s.log.Debug(
				"Checksum report arrived after eviction",
				"player", player,
				"frame", r.frame,
			)
			continue
		}

		if local != r.checksum {
			return DesyncError{
				Player: player,
				Frame:  r.frame,
				Local:  local,
				Remote: r.checksum,
			}
		}

		s.log.Debug("Peer checksum verified", "player", player, "frame", r.frame)
	}
	return nil
}

func (s *Session) evict() {
	bound := s.confirmed - rframe.Frame(s.window)
	if bound > 0 {
		s.snaps.EvictBefore(bound)
	}
}

// broadcastInput sends the local input for target to every peer,
// retransmitting a couple of recent frames for loss tolerance,
// with the newest stable checksum piggybacked on each packet.
func (s *Session) broadcastInput(target rframe.Frame) {
	reportFrame := rframe.NullFrame
	var reportSum uint64
	if s.confirmed >= 0 {
		if sum, ok := s.snaps.Checksum(s.confirmed); ok {
			reportFrame = s.confirmed
			reportSum = sum
		}
	}

	oldest := target - inputRedundancy
	if oldest < 0 {
		oldest = 0
	}

	for f := oldest; f <= target; f++ {
		if !s.inputs.Has(s.localPlayer, f) {
			continue
		}
		in, _ := s.inputs.Get(s.localPlayer, f)

		o := rpeer.Outbound{
			Frame:             f,
			Input:             in,
			ConfirmedFrame:    reportFrame,
			ConfirmedChecksum: reportSum,
		}

		for p := 0; p < s.numPlayers; p++ {
			player := rframe.Player(p)
			if player == s.localPlayer {
				continue
			}
			if err := s.peers[player].Send(o); err != nil {
				// Fire and forget; a dead channel is caught by
				// IsConnected on the next tick's poll.
				s.log.Debug(
					"Failed to send input",
					"player", player,
					"frame", f,
					"err", err,
				)
			}
		}
	}
}
