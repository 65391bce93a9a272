package rcast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rewind-engine/rewind/internal/rtest"
	"github.com/rewind-engine/rewind/rcast"
)

func TestRoundTrip_allShards(t *testing.T) {
	t.Parallel()

	payload := rtest.RandomDataForTest(t, 10_000)

	o, err := rcast.Originate(payload, 1200, 0.5)
	require.NoError(t, err)

	a, err := rcast.NewAcceptance(o.Header)
	require.NoError(t, err)

	for _, s := range o.Shards {
		require.NoError(t, a.AddPacket(s))
	}

	got, err := a.Reconstruct()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestRoundTrip_withLoss(t *testing.T) {
	t.Parallel()

	payload := rtest.RandomDataForTest(t, 10_000)

	o, err := rcast.Originate(payload, 1200, 0.5)
	require.NoError(t, err)

	nParity := int(o.Header.NumParity)
	require.Greater(t, nParity, 0)

	a, err := rcast.NewAcceptance(o.Header)
	require.NoError(t, err)

	// Lose the first nParity shards entirely;
	// parity must cover the gap.
	for _, s := range o.Shards[nParity:] {
		require.NoError(t, a.AddPacket(s))
	}
	require.True(t, a.Ready())

	got, err := a.Reconstruct()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestReconstruct_tooFewShards(t *testing.T) {
	t.Parallel()

	payload := rtest.RandomDataForTest(t, 5_000)

	o, err := rcast.Originate(payload, 1200, 0.5)
	require.NoError(t, err)

	a, err := rcast.NewAcceptance(o.Header)
	require.NoError(t, err)

	require.NoError(t, a.AddPacket(o.Shards[0]))
	require.False(t, a.Ready())

	_, err = a.Reconstruct()
	require.Error(t, err)
}

func TestAddPacket_duplicatesAbsorbed(t *testing.T) {
	t.Parallel()

	payload := rtest.RandomDataForTest(t, 3_000)

	o, err := rcast.Originate(payload, 1200, 1)
	require.NoError(t, err)

	a, err := rcast.NewAcceptance(o.Header)
	require.NoError(t, err)

	require.NoError(t, a.AddPacket(o.Shards[0]))
	require.NoError(t, a.AddPacket(o.Shards[0]))

	// Same index, different content: rejected.
	evil := append([]byte(nil), o.Shards[0]...)
	evil[len(evil)-1] ^= 0xff
	require.Error(t, a.AddPacket(evil))
}

func TestAddPacket_malformed(t *testing.T) {
	t.Parallel()

	payload := rtest.RandomDataForTest(t, 3_000)

	o, err := rcast.Originate(payload, 1200, 1)
	require.NoError(t, err)

	a, err := rcast.NewAcceptance(o.Header)
	require.NoError(t, err)

	require.Error(t, a.AddPacket(o.Shards[0][:5]))

	outOfRange := append([]byte(nil), o.Shards[0]...)
	outOfRange[0] = 0xff
	outOfRange[1] = 0xff
	require.Error(t, a.AddPacket(outOfRange))
}

func TestReconstruct_checksumMismatch(t *testing.T) {
	t.Parallel()

	payload := rtest.RandomDataForTest(t, 2_000)

	o, err := rcast.Originate(payload, 1200, 1)
	require.NoError(t, err)

	// Tamper with the header checksum; reconstruction must refuse.
	h := o.Header
	h.Checksum ^= 1

	a, err := rcast.NewAcceptance(h)
	require.NoError(t, err)
	for _, s := range o.Shards {
		require.NoError(t, a.AddPacket(s))
	}

	_, err = a.Reconstruct()
	require.ErrorContains(t, err, "checksum mismatch")
}
