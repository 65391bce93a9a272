package rsteptest_test

import (
	"testing"

	"github.com/rewind-engine/rewind/rframe"
	"github.com/rewind-engine/rewind/rmath"
	"github.com/rewind-engine/rewind/rstep/rsteptest"
	"github.com/stretchr/testify/require"
)

func TestWorld_deterministic(t *testing.T) {
	t.Parallel()

	seq := make([]rframe.Inputs, 64)
	for i := range seq {
		seq[i] = rframe.Inputs{
			rframe.Input(i*7) & 0xf,
			rframe.Input(i*13) & 0xf,
		}
	}

	rsteptest.AssertDeterministic(
		t,
		rsteptest.World{},
		rsteptest.NewState(2, 0xfeed),
		seq,
	)
}

func TestWorld_velocityFromBitmask(t *testing.T) {
	t.Parallel()

	w := rsteptest.World{}
	state := rsteptest.NewState(1, 1)

	state = w.Step(state, rframe.Inputs{rframe.InputRight})
	s := rsteptest.DecodeState(state)
	require.Equal(t, rmath.FromInt(10), s.Players[0].VelX)
	require.Equal(t, rmath.Fixed(0), s.Players[0].VelY)

	// Opposing directions cancel and zero the axis velocity.
	state = w.Step(state, rframe.Inputs{rframe.InputLeft | rframe.InputRight})
	s = rsteptest.DecodeState(state)
	require.Equal(t, rmath.Fixed(0), s.Players[0].VelX)
}

func TestWorld_speedClamped(t *testing.T) {
	t.Parallel()

	w := rsteptest.World{}
	state := rsteptest.NewState(1, 1)

	for range 20 {
		state = w.Step(state, rframe.Inputs{rframe.InputRight | rframe.InputUp})
	}

	s := rsteptest.DecodeState(state)
	speed := rmath.Sqrt(
		s.Players[0].VelX.Mul(s.Players[0].VelX) +
			s.Players[0].VelY.Mul(s.Players[0].VelY),
	)
	require.LessOrEqual(t, speed, rmath.FromInt(40))
}

func TestWorld_rngSeedChangesOutcome(t *testing.T) {
	t.Parallel()

	w := rsteptest.World{}
	in := rframe.Inputs{rframe.InputUp}

	a := w.Step(rsteptest.NewState(1, 1), in)
	b := w.Step(rsteptest.NewState(1, 2), in)
	require.NotEqual(t, a, b)
}
