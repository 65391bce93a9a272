package rsteptest

import (
	"bytes"
	"testing"

	"github.com/rewind-engine/rewind/rframe"
	"github.com/rewind-engine/rewind/rstep"
)

// AssertDeterministic runs the full input sequence through s twice
// from the same initial state and fails the test if any intermediate
// or final state differs by even one byte.
//
// Simulation owners can reuse this against their own Stepper;
// passing it is necessary (not sufficient) for rollback correctness.
func AssertDeterministic(
	t *testing.T,
	s rstep.Stepper,
	initial []byte,
	seq []rframe.Inputs,
) {
	t.Helper()

	first := make([][]byte, 0, len(seq))

	state := bytes.Clone(initial)
	for _, in := range seq {
		state = s.Step(state, in)
		first = append(first, state)
	}

	state = bytes.Clone(initial)
	for i, in := range seq {
		state = s.Step(state, in)
		if !bytes.Equal(first[i], state) {
			t.Fatalf(
				"non-deterministic step: frame %d differs between runs\nfirst:  %x\nsecond: %x",
				i, first[i], state,
			)
		}
	}
}
