// Package rpeertest provides in-memory [rpeer.Channel] implementations
// for driving sessions in tests without a network.
package rpeertest

import (
	"errors"
	"sync"
	"time"

	"github.com/rewind-engine/rewind/rpeer"
)

// ErrDisconnected is returned from Send on an endpoint
// whose peer has been disconnected with [Endpoint.SetConnected].
var ErrDisconnected = errors.New("endpoint disconnected")

// Endpoint is one side of an in-memory channel pair.
//
// Delivery is delayed by a configurable number of the *receiver's*
// Poll calls. Since a session polls once per tick, a delay of n
// models inputs arriving n frames late, which is the shape of lag
// the rollback scenario tests need.
type Endpoint struct {
	mu sync.Mutex

	peer *Endpoint

	delay int
	rtt   time.Duration

	connected bool
	dropping  bool

	polls   int
	pending []delayed
}

type delayed struct {
	in  rpeer.Inbound
	due int
}

// Pair returns two linked endpoints.
// Sends on one become Poll results on the other
// after delay Poll calls on the receiving side.
func Pair(delay int) (*Endpoint, *Endpoint) {
	a := &Endpoint{delay: delay, connected: true}
	b := &Endpoint{delay: delay, connected: true}
	a.peer = b
	b.peer = a
	return a, b
}

func (e *Endpoint) Send(o rpeer.Outbound) error {
	p := e.peer

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return ErrDisconnected
	}
	if p.dropping {
		// Packet loss: silently gone, like a dropped datagram.
		return nil
	}

	p.pending = append(p.pending, delayed{
		in: rpeer.Inbound{
			Frame:             o.Frame,
			Input:             o.Input,
			ConfirmedFrame:    o.ConfirmedFrame,
			ConfirmedChecksum: o.ConfirmedChecksum,
		},
		due: p.polls + p.delay,
	})
	return nil
}

func (e *Endpoint) Poll() []rpeer.Inbound {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []rpeer.Inbound
	remaining := e.pending[:0]
	for _, d := range e.pending {
		if d.due <= e.polls {
			out = append(out, d.in)
		} else {
			remaining = append(remaining, d)
		}
	}
	e.pending = remaining
	e.polls++

	return out
}

func (e *Endpoint) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

func (e *Endpoint) RTT() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rtt
}

// SetConnected flips the endpoint's connection status.
// A disconnected endpoint rejects incoming sends
// and reports false from IsConnected.
func (e *Endpoint) SetConnected(connected bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = connected
}

// SetDropping toggles silent packet loss for traffic *toward* e.
func (e *Endpoint) SetDropping(dropping bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dropping = dropping
}

// SetRTT sets the reported round-trip time.
func (e *Endpoint) SetRTT(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rtt = d
}

var _ rpeer.Channel = (*Endpoint)(nil)
