package rquic_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rewind-engine/rewind/internal/rtest"
	"github.com/rewind-engine/rewind/rframe"
	"github.com/rewind-engine/rewind/rpeer"
	"github.com/rewind-engine/rewind/rquic"
	"github.com/rewind-engine/rewind/rquic/rquictest"
)

// Probing disabled in most tests so the stub traffic
// is exactly what the test sends.
var noProbes = rquic.ChannelConfig{ProbeInterval: -1}

func TestChannel_sendPoll(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ca, cb := rquictest.ConnPair()
	log := rtest.NewLogger(t)

	a := rquic.NewChannel(ctx, log.With("ch", "a"), ca, noProbes)
	defer a.Close()
	b := rquic.NewChannel(ctx, log.With("ch", "b"), cb, noProbes)
	defer b.Close()

	require.NoError(t, a.Send(rpeer.Outbound{Frame: 3, Input: 5, ConfirmedFrame: 1, ConfirmedChecksum: 7}))

	require.Eventually(t, func() bool {
		got := b.Poll()
		if len(got) == 0 {
			return false
		}
		require.Equal(t, rpeer.Inbound{Frame: 3, Input: 5, ConfirmedFrame: 1, ConfirmedChecksum: 7}, got[0])
		return true
	}, 5*time.Second, time.Millisecond)
}

func TestChannel_pollOrdersBySendWithinConn(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ca, cb := rquictest.ConnPair()
	log := rtest.NewLogger(t)

	a := rquic.NewChannel(ctx, log.With("ch", "a"), ca, noProbes)
	defer a.Close()
	b := rquic.NewChannel(ctx, log.With("ch", "b"), cb, noProbes)
	defer b.Close()

	for f := 0; f < 5; f++ {
		require.NoError(t, a.Send(rpeer.Outbound{Frame: rframe.Frame(f)}))
	}

	var got []rpeer.Inbound
	require.Eventually(t, func() bool {
		got = append(got, b.Poll()...)
		return len(got) == 5
	}, 5*time.Second, time.Millisecond)

	for f := 0; f < 5; f++ {
		require.Equal(t, rframe.Frame(f), got[f].Frame)
	}
}

func TestChannel_rttFromProbes(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ca, cb := rquictest.ConnPair()
	log := rtest.NewLogger(t)

	a := rquic.NewChannel(ctx, log.With("ch", "a"), ca, rquic.ChannelConfig{
		ProbeInterval: time.Millisecond,
	})
	defer a.Close()
	b := rquic.NewChannel(ctx, log.With("ch", "b"), cb, noProbes)
	defer b.Close()

	require.Eventually(t, func() bool {
		return a.RTT() > 0
	}, 5*time.Second, time.Millisecond)
}

func TestChannel_disconnectOnClosedConn(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ca, cb := rquictest.ConnPair()
	log := rtest.NewLogger(t)

	a := rquic.NewChannel(ctx, log.With("ch", "a"), ca, noProbes)
	defer a.Close()

	require.True(t, a.IsConnected())

	// The remote side going away surfaces as a receive error.
	require.NoError(t, cb.CloseWithError(0, "gone"))

	require.Eventually(t, func() bool {
		return !a.IsConnected()
	}, 5*time.Second, time.Millisecond)

	require.Error(t, a.Send(rpeer.Outbound{}))
}
