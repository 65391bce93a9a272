// Package rquic implements [rpeer.Channel] over a QUIC connection,
// carrying input reports as unreliable datagrams.
//
// Datagrams are the right transport for rollback input traffic:
// a lost packet is compensated by the next frame's send
// (and by prediction on the receiving side), so retransmission
// and head-of-line blocking would only add latency.
package rquic

import (
	"context"
	"net"

	"github.com/quic-go/quic-go"
)

// ApplicationErrorCode is used for [Conn.CloseWithError].
type ApplicationErrorCode uint64

// Conn is the subset of a QUIC connection that rquic uses.
//
// Narrowing the surface keeps tests honest:
// a stub only has to fake datagram exchange, not streams.
type Conn interface {
	SendDatagram([]byte) error
	ReceiveDatagram(context.Context) ([]byte, error)

	CloseWithError(code ApplicationErrorCode, msg string) error

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

var _ Conn = ConnAdapter{}

// ConnAdapter wraps a [*quic.Conn], implementing the [Conn] interface.
//
// Create an instance with [WrapConn].
type ConnAdapter struct {
	qc *quic.Conn
}

// WrapConn wraps the given connection,
// returning a value implementing [Conn].
func WrapConn(qc *quic.Conn) ConnAdapter {
	return ConnAdapter{qc: qc}
}

func (c ConnAdapter) SendDatagram(p []byte) error {
	return c.qc.SendDatagram(p)
}

func (c ConnAdapter) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	return c.qc.ReceiveDatagram(ctx)
}

func (c ConnAdapter) CloseWithError(
	code ApplicationErrorCode, msg string,
) error {
	return c.qc.CloseWithError(quic.ApplicationErrorCode(code), msg)
}

func (c ConnAdapter) LocalAddr() net.Addr { return c.qc.LocalAddr() }

func (c ConnAdapter) RemoteAddr() net.Addr { return c.qc.RemoteAddr() }
