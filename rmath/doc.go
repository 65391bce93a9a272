// Package rmath is a software, integer-only math module
// for deterministic simulations.
//
// Resimulating a frame during a rollback must produce
// byte-identical state on every peer and on every replay.
// Hardware floating point does not give that guarantee across
// architectures, and the standard library's transcendental
// functions are explicitly allowed to differ between platforms.
// Everything here is computed with integer operations only,
// so the same inputs produce the same bits everywhere.
package rmath
