package rquic

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"

	"github.com/quic-go/quic-go"
)

// Dialer establishes QUIC connections to remote players.
//
// Connection setup happens before a session starts:
// the signaling layer (out of scope here) exchanges addresses,
// then each client dials or accepts until it holds one connection
// per remote player.
type Dialer struct {
	TLS *tls.Config

	Transport *quic.Transport
	QUIC      *quic.Config
}

func validateQUICConfig(cfg *quic.Config) error {
	if cfg == nil {
		return errors.New("QUIC config may not be nil")
	}
	if !cfg.EnableDatagrams {
		return errors.New("QUIC datagrams must be enabled; set EnableDatagrams=true")
	}
	return nil
}

// Dial opens a connection to the given address.
func (d Dialer) Dial(ctx context.Context, addr net.Addr) (Conn, error) {
	if err := validateQUICConfig(d.QUIC); err != nil {
		return nil, err
	}

	qc, err := d.Transport.Dial(ctx, addr, d.TLS, d.QUIC)
	if err != nil {
		return nil, fmt.Errorf("failed to dial peer at %v: %w", addr, err)
	}

	return WrapConn(qc), nil
}

// Listener accepts connections from remote players.
type Listener struct {
	ql *quic.Listener
}

// Listen starts accepting QUIC connections on the transport.
func Listen(t *quic.Transport, tlsConf *tls.Config, cfg *quic.Config) (*Listener, error) {
	if err := validateQUICConfig(cfg); err != nil {
		return nil, err
	}

	ql, err := t.Listen(tlsConf, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	return &Listener{ql: ql}, nil
}

// Accept blocks until a remote player connects.
func (l *Listener) Accept(ctx context.Context) (Conn, error) {
	qc, err := l.ql.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return WrapConn(qc), nil
}

// Close stops accepting new connections.
// Established connections are unaffected.
func (l *Listener) Close() error {
	return l.ql.Close()
}
