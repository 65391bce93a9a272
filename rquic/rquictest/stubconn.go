// Package rquictest provides in-memory [rquic.Conn] stubs.
package rquictest

import (
	"bytes"
	"context"
	"net"
	"sync"

	"github.com/rewind-engine/rewind/rquic"
)

// StubNetAddr is a [net.Addr] with fixed values.
type StubNetAddr struct {
	Net, Addr string
}

func (a StubNetAddr) Network() string { return a.Net }
func (a StubNetAddr) String() string  { return a.Addr }

// StubConn is one side of an in-memory datagram connection.
//
// Sends that would overfill the buffer are silently dropped,
// matching unreliable datagram semantics.
type StubConn struct {
	LocalAddrValue, RemoteAddrValue StubNetAddr

	out chan []byte
	in  chan []byte

	// Shared between both sides: closing one closes the pair.
	closeOnce *sync.Once
	closed    chan struct{}
}

var _ rquic.Conn = (*StubConn)(nil)

// ConnPair returns two linked stub connections;
// datagrams sent on one are received on the other.
func ConnPair() (*StubConn, *StubConn) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)

	once := new(sync.Once)
	closed := make(chan struct{})

	a := &StubConn{
		LocalAddrValue:  StubNetAddr{Net: "stub", Addr: "a"},
		RemoteAddrValue: StubNetAddr{Net: "stub", Addr: "b"},
		out:             ab,
		in:              ba,
		closeOnce:       once,
		closed:          closed,
	}
	b := &StubConn{
		LocalAddrValue:  StubNetAddr{Net: "stub", Addr: "b"},
		RemoteAddrValue: StubNetAddr{Net: "stub", Addr: "a"},
		out:             ba,
		in:              ab,
		closeOnce:       once,
		closed:          closed,
	}
	return a, b
}

// SendDatagram implements [rquic.Conn].
func (c *StubConn) SendDatagram(p []byte) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}

	select {
	case c.out <- bytes.Clone(p):
	default:
		// Buffer full; the datagram is lost, not an error.
	}
	return nil
}

// ReceiveDatagram implements [rquic.Conn].
func (c *StubConn) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, net.ErrClosed
	case p := <-c.in:
		return p, nil
	}
}

// CloseWithError implements [rquic.Conn].
// Closing either side closes the pair.
func (c *StubConn) CloseWithError(code rquic.ApplicationErrorCode, msg string) error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}

// LocalAddr implements [rquic.Conn].
func (c *StubConn) LocalAddr() net.Addr { return c.LocalAddrValue }

// RemoteAddr implements [rquic.Conn].
func (c *StubConn) RemoteAddr() net.Addr { return c.RemoteAddrValue }
