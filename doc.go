// Package rewind is a rollback-netcode synchronization core
// for peer-to-peer multiplayer simulations.
//
// A [Session] keeps several peers' deterministic simulations in
// lock-step despite network latency: it predicts remote inputs,
// advances speculatively, and when a prediction turns out wrong,
// restores an earlier snapshot and resimulates forward with the
// corrected inputs.
//
// The simulation itself lives on the other side of the
// [rstep.Stepper] contract. As long as stepping is a pure,
// deterministic function of state bytes and inputs, the session
// guarantees every peer converges on bit-identical state.
package rewind
