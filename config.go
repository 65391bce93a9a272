package rewind

import (
	"errors"
	"fmt"
	"log/slog"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/rewind-engine/rewind/rframe"
	"github.com/rewind-engine/rewind/rpeer"
	"github.com/rewind-engine/rewind/rstep"
)

// SessionConfig is the configuration for a [Session].
type SessionConfig struct {
	// The simulation to drive. See the contract notes on [rstep.Stepper];
	// the session's correctness depends on them.
	Stepper rstep.Stepper

	// Total players in the match, and which index is local.
	NumPlayers  int
	LocalPlayer rframe.Player

	// One channel per remote player.
	// Every channel must already be connected;
	// connection setup is the signaling layer's job.
	Peers map[rframe.Player]rpeer.Channel

	// Serialized world state at frame 0,
	// identical on every peer (see the rcast package for
	// one way to get it there).
	InitialState []byte

	// Maximum rollback depth in frames.
	// Also how much snapshot and input history is retained
	// behind the confirmed frame.
	WindowSize int

	// Frames of deliberate local-input latency.
	// Trading a little input lag for fewer rollbacks.
	InputDelay int

	// How many unconfirmed frames may be simulated speculatively
	// before the session stalls.
	// Zero means WindowSize. Must not exceed WindowSize,
	// since rolling back further than the window is impossible.
	StallThreshold int

	// Prediction fallback for a player with no input history yet.
	DefaultInput rframe.Input

	// Optional tracing. Nil means no-op.
	TracerProvider oteltrace.TracerProvider
}

// validate panics if there are any illegal settings in the configuration.
func (c SessionConfig) validate() {
	// If there are multiple reasons we could panic,
	// collect them all in one go
	// so we can give a maximally helpful error.
	var panicErrs error

	if c.Stepper == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("SessionConfig.Stepper may not be nil"),
		)
	}

	if c.NumPlayers < 2 {
		panicErrs = errors.Join(
			panicErrs,
			fmt.Errorf("SessionConfig.NumPlayers must be at least 2 (got %d)", c.NumPlayers),
		)
	}

	if int(c.LocalPlayer) >= c.NumPlayers {
		panicErrs = errors.Join(
			panicErrs,
			fmt.Errorf(
				"SessionConfig.LocalPlayer %d out of range for %d players",
				c.LocalPlayer, c.NumPlayers,
			),
		)
	}

	if len(c.InitialState) == 0 {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("SessionConfig.InitialState may not be empty"),
		)
	}

	if c.WindowSize <= 0 {
		panicErrs = errors.Join(
			panicErrs,
			fmt.Errorf("SessionConfig.WindowSize must be positive (got %d)", c.WindowSize),
		)
	}

	if c.InputDelay < 0 {
		panicErrs = errors.Join(
			panicErrs,
			fmt.Errorf("SessionConfig.InputDelay must not be negative (got %d)", c.InputDelay),
		)
	}

	if c.StallThreshold < 0 || c.StallThreshold > c.WindowSize {
		panicErrs = errors.Join(
			panicErrs,
			fmt.Errorf(
				"SessionConfig.StallThreshold must be in [0, WindowSize] (got %d, window %d)",
				c.StallThreshold, c.WindowSize,
			),
		)
	}

	for p := 0; p < c.NumPlayers; p++ {
		player := rframe.Player(p)
		if player == c.LocalPlayer {
			if _, ok := c.Peers[player]; ok {
				panicErrs = errors.Join(
					panicErrs,
					fmt.Errorf("SessionConfig.Peers must not contain the local player %d", player),
				)
			}
			continue
		}
		if c.Peers[player] == nil {
			panicErrs = errors.Join(
				panicErrs,
				fmt.Errorf("SessionConfig.Peers is missing a channel for player %d", player),
			)
		}
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// NewSession validates the configuration and returns a running session.
//
// Configuration bugs panic, in the spirit of failing loudly during
// development. A peer channel that is not yet connected is a runtime
// condition instead, and returns [PeerDisconnectedError].
func NewSession(log *slog.Logger, cfg SessionConfig) (*Session, error) {
	if log == nil {
		panic(errors.New("nil *slog.Logger given to NewSession"))
	}
	cfg.validate()

	for p := 0; p < cfg.NumPlayers; p++ {
		player := rframe.Player(p)
		if player == cfg.LocalPlayer {
			continue
		}
		if !cfg.Peers[player].IsConnected() {
			return nil, PeerDisconnectedError{Player: player}
		}
	}

	return newSession(log, cfg), nil
}
