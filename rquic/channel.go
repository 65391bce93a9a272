package rquic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rewind-engine/rewind/rpeer"
	"github.com/rewind-engine/rewind/rpubsub"
)

// DefaultProbeInterval is how often a channel pings its remote
// when the config does not specify otherwise.
const DefaultProbeInterval = time.Second

// ChannelConfig configures a [Channel].
type ChannelConfig struct {
	// How often to send an RTT probe.
	// Zero means [DefaultProbeInterval]; negative disables probing.
	ProbeInterval time.Duration
}

// Channel is an [rpeer.Channel] over a QUIC connection.
//
// A background goroutine receives datagrams,
// answering probes itself and handing input reports
// to an rpubsub stream that Poll drains.
// Poll must only be called from one goroutine
// (the session's tick, per the ownership model).
type Channel struct {
	log *slog.Logger

	conn Conn

	head *rpubsub.Stream[rpeer.Inbound]

	rttNanos  atomic.Int64
	connected atomic.Bool

	// now is split out so tests can drive RTT measurement.
	now func() time.Time

	cancel context.CancelCauseFunc
	wg     sync.WaitGroup
}

var _ rpeer.Channel = (*Channel)(nil)

// NewChannel starts the background workers for conn
// and returns the channel.
// The given context bounds the workers' lifetime;
// [Channel.Close] also stops them.
func NewChannel(
	ctx context.Context,
	log *slog.Logger,
	conn Conn,
	cfg ChannelConfig,
) *Channel {
	ctx, cancel := context.WithCancelCause(ctx)

	c := &Channel{
		log:    log,
		conn:   conn,
		head:   rpubsub.NewStream[rpeer.Inbound](),
		now:    time.Now,
		cancel: cancel,
	}
	c.connected.Store(true)

	c.wg.Add(1)
	go c.receive(ctx, c.head)

	probeEvery := cfg.ProbeInterval
	if probeEvery == 0 {
		probeEvery = DefaultProbeInterval
	}
	if probeEvery > 0 {
		c.wg.Add(1)
		go c.probe(ctx, probeEvery)
	}

	return c
}

func (c *Channel) receive(ctx context.Context, tail *rpubsub.Stream[rpeer.Inbound]) {
	defer c.wg.Done()

	for {
		raw, err := c.conn.ReceiveDatagram(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn(
					"Receive failed; marking channel disconnected",
					"remote", c.conn.RemoteAddr(),
					"err", err,
				)
			}
			c.connected.Store(false)
			return
		}

		pkt, err := DecodePacket(raw)
		if err != nil {
			// Unreliable transport: nothing to do but drop it.
			c.log.Debug("Dropping undecodable datagram", "err", err)
			continue
		}

		switch pkt.Type {
		case InputPacketType:
			tail.Publish(pkt.Input)
			tail = tail.Next

		case PingPacketType:
			// Echo the remote's clock back; we never interpret it.
			if err := c.conn.SendDatagram(EncodeProbe(PongPacketType, pkt.Nanos)); err != nil {
				c.log.Debug("Failed to answer ping", "err", err)
			}

		case PongPacketType:
			c.rttNanos.Store(c.now().UnixNano() - pkt.Nanos)
		}
	}
}

func (c *Channel) probe(ctx context.Context, every time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := c.conn.SendDatagram(
				EncodeProbe(PingPacketType, c.now().UnixNano()),
			); err != nil {
				c.log.Debug("Failed to send ping", "err", err)
			}
		}
	}
}

// Send transmits one input report, fire-and-forget.
// A transport-level send failure marks the channel disconnected.
func (c *Channel) Send(o rpeer.Outbound) error {
	if !c.connected.Load() {
		return fmt.Errorf("channel to %v is disconnected", c.conn.RemoteAddr())
	}

	if err := c.conn.SendDatagram(EncodeInput(o)); err != nil {
		c.connected.Store(false)
		return fmt.Errorf("failed to send input datagram: %w", err)
	}
	return nil
}

// Poll returns the input reports received since the previous call.
func (c *Channel) Poll() []rpeer.Inbound {
	vals, next := rpubsub.Collect(c.head)
	c.head = next
	return vals
}

func (c *Channel) IsConnected() bool {
	return c.connected.Load()
}

// RTT returns the most recent probe measurement,
// or zero before the first pong arrives.
func (c *Channel) RTT() time.Duration {
	return time.Duration(c.rttNanos.Load())
}

// Close stops the background workers and closes the connection.
func (c *Channel) Close() error {
	c.cancel(fmt.Errorf("channel closed"))
	err := c.conn.CloseWithError(0, "session over")
	c.wg.Wait()
	return err
}
