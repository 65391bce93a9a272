// Package rewindtest wires multiple sessions together over in-memory
// channels, for whole-match scenario tests that need every peer's
// view of the simulation at once.
package rewindtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rewind-engine/rewind"
	"github.com/rewind-engine/rewind/internal/rtest"
	"github.com/rewind-engine/rewind/rframe"
	"github.com/rewind-engine/rewind/rpeer"
	"github.com/rewind-engine/rewind/rpeer/rpeertest"
	"github.com/rewind-engine/rewind/rstep"
)

// NetworkConfig is the configuration for [NewNetwork].
type NetworkConfig struct {
	// Every session simulates with the same stepper instance,
	// so it must be stateless as the [rstep.Stepper] contract requires.
	Stepper rstep.Stepper

	NumPlayers   int
	InitialState []byte

	WindowSize int
	InputDelay int

	// Delivery delay between every pair of peers, in ticks.
	// See [rpeertest.Pair].
	Delay int

	DefaultInput rframe.Input
}

// Network is a set of sessions, one per player,
// fully meshed over [rpeertest.Endpoint] pairs
// and ticked in lockstep.
type Network struct {
	t *testing.T

	// Sessions[p] is player p's session.
	Sessions []*rewind.Session

	links map[[2]int]*rpeertest.Endpoint
}

// NewNetwork builds and connects one session per player.
func NewNetwork(t *testing.T, cfg NetworkConfig) *Network {
	t.Helper()

	log := rtest.NewLogger(t)

	links := make(map[[2]int]*rpeertest.Endpoint)
	peers := make([]map[rframe.Player]rpeer.Channel, cfg.NumPlayers)
	for i := range peers {
		peers[i] = make(map[rframe.Player]rpeer.Channel)
	}

	for i := 0; i < cfg.NumPlayers; i++ {
		for j := i + 1; j < cfg.NumPlayers; j++ {
			a, b := rpeertest.Pair(cfg.Delay)
			peers[i][rframe.Player(j)] = a
			peers[j][rframe.Player(i)] = b
			links[[2]int{i, j}] = a
			links[[2]int{j, i}] = b
		}
	}

	sessions := make([]*rewind.Session, cfg.NumPlayers)
	for i := range sessions {
		s, err := rewind.NewSession(
			log.With("player", i),
			rewind.SessionConfig{
				Stepper:      cfg.Stepper,
				NumPlayers:   cfg.NumPlayers,
				LocalPlayer:  rframe.Player(i),
				Peers:        peers[i],
				InitialState: cfg.InitialState,
				WindowSize:   cfg.WindowSize,
				InputDelay:   cfg.InputDelay,
				DefaultInput: cfg.DefaultInput,
			},
		)
		require.NoError(t, err)
		sessions[i] = s
	}

	return &Network{t: t, Sessions: sessions, links: links}
}

// Link returns the endpoint session `owner` uses to talk to `peer`,
// for injecting loss or disconnection mid-scenario.
func (n *Network) Link(owner, peer int) *rpeertest.Endpoint {
	l, ok := n.links[[2]int{owner, peer}]
	if !ok {
		panic(fmt.Errorf("BUG: no link from %d to %d", owner, peer))
	}
	return l
}

// Tick advances every session once, in player order,
// with inputs[p] as player p's local input.
// Any session error fails the test immediately.
func (n *Network) Tick(ctx context.Context, inputs []rframe.Input) []rewind.AdvanceResult {
	n.t.Helper()

	require.Len(n.t, inputs, len(n.Sessions))

	out := make([]rewind.AdvanceResult, len(n.Sessions))
	for i, s := range n.Sessions {
		res, err := s.AdvanceFrame(ctx, inputs[i])
		require.NoError(n.t, err)
		out[i] = res
	}
	return out
}

// TickUntilConfirmed ticks with idle inputs until every session's
// confirmed frame reaches f, failing the test after maxTicks.
func (n *Network) TickUntilConfirmed(
	ctx context.Context, f rframe.Frame, idle rframe.Input, maxTicks int,
) {
	n.t.Helper()

	idles := make([]rframe.Input, len(n.Sessions))
	for i := range idles {
		idles[i] = idle
	}

	for tick := 0; tick < maxTicks; tick++ {
		done := true
		for _, s := range n.Sessions {
			if s.ConfirmedFrame() < f {
				done = false
				break
			}
		}
		if done {
			return
		}
		n.Tick(ctx, idles)
	}

	for i, s := range n.Sessions {
		require.GreaterOrEqual(
			n.t, s.ConfirmedFrame(), f,
			"session %d did not confirm frame %d within %d ticks", i, f, maxTicks,
		)
	}
}
