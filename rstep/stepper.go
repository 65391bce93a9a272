// Package rstep declares the deterministic frame-advance contract
// that a simulation owner must satisfy to be driven by a rollback session.
package rstep

import "github.com/rewind-engine/rewind/rframe"

// Stepper advances a serialized world state by exactly one fixed timestep.
//
// The session calls Step both for live frames and during rollback replay,
// and relies on it being a pure function of its arguments:
// given identical state bytes and an identical input vector,
// Step must return byte-identical output on every peer and on every call.
//
// Implementations must not:
//   - read the wall clock, or anything else outside the arguments;
//   - iterate a map or any other container whose order is not
//     made deterministic (sort by a numeric ID first);
//   - use hardware floating point for anything that feeds back into state
//     (see the rmath package for a software alternative);
//   - keep random state outside the state bytes.
//     An RNG is fine as long as its seed travels inside state.
//
// Step must not retain or mutate the state slice it is given;
// it returns a new slice.
// The input vector is indexed by player and always has one entry per player,
// whether that entry is a confirmed or a predicted value.
type Stepper interface {
	Step(state []byte, in rframe.Inputs) []byte
}
