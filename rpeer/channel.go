// Package rpeer declares the contract between a rollback session
// and the transport carrying one remote player's traffic.
//
// The session consumes channels; it does not implement them.
// The rquic package provides a QUIC-backed implementation,
// and rpeertest provides an in-memory one for tests.
package rpeer

import (
	"time"

	"github.com/rewind-engine/rewind/rframe"
)

// Outbound is one input report sent to a remote player.
//
// Alongside the input itself, every report piggybacks the sender's
// newest stable checksum, so peers can detect desyncs without a
// separate message flow. Abusing the input traffic this way means
// there is only one hole-punched path to keep alive.
type Outbound struct {
	// The frame the input applies to.
	Frame rframe.Frame

	// The sender's local input for that frame.
	Input rframe.Input

	// The newest frame the sender considers fully confirmed,
	// and the checksum of its state at that frame.
	// ConfirmedFrame is [rframe.NullFrame] when the sender
	// has nothing stable to report yet.
	ConfirmedFrame    rframe.Frame
	ConfirmedChecksum uint64
}

// Inbound is one input report received from the remote player.
// It mirrors [Outbound].
//
// The transport gives no ordering or uniqueness guarantees:
// the same frame may arrive twice, and frames may arrive out of order.
// Consumers must apply reports idempotently.
type Inbound struct {
	Frame rframe.Frame
	Input rframe.Input

	ConfirmedFrame    rframe.Frame
	ConfirmedChecksum uint64
}

// Channel is one connection to one remote player.
//
// Send is best-effort and fire-and-forget:
// lost packets are compensated by later sends, not retransmission.
// Poll never blocks; it returns whatever has arrived since the
// previous call, possibly nothing.
//
// RTT is a tuning signal for the session's stall threshold only.
// It must never influence simulation results.
type Channel interface {
	Send(Outbound) error

	Poll() []Inbound

	IsConnected() bool

	RTT() time.Duration
}
