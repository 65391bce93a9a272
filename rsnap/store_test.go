package rsnap_test

import (
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"

	"github.com/rewind-engine/rewind/internal/rtest"
	"github.com/rewind-engine/rewind/rframe"
	"github.com/rewind-engine/rewind/rsnap"
)

func TestStore_saveLoad(t *testing.T) {
	t.Parallel()

	s := rsnap.New(8)
	state := rtest.RandomDataForTest(t, 64)

	sum := s.Save(3, state)
	require.Equal(t, xxhash.Sum64(state), sum)

	got, err := s.Load(3)
	require.NoError(t, err)
	require.Equal(t, state, got)

	// The load is a defensive copy.
	got[0] ^= 0xff
	again, err := s.Load(3)
	require.NoError(t, err)
	require.Equal(t, state, again)
}

func TestStore_exactMissIsError(t *testing.T) {
	t.Parallel()

	s := rsnap.New(8)
	s.Save(3, []byte("three"))

	_, err := s.Load(4)
	require.ErrorAs(t, err, &rsnap.SnapshotMissingError{})
	require.Equal(t, rsnap.SnapshotMissingError{Frame: 4}, err)
}

func TestStore_loadNearest(t *testing.T) {
	t.Parallel()

	s := rsnap.New(8)
	s.Save(2, []byte("two"))
	s.Save(5, []byte("five"))

	f, state, err := s.LoadNearest(4)
	require.NoError(t, err)
	require.Equal(t, rframe.Frame(2), f)
	require.Equal(t, []byte("two"), state)

	f, state, err = s.LoadNearest(5)
	require.NoError(t, err)
	require.Equal(t, rframe.Frame(5), f)
	require.Equal(t, []byte("five"), state)

	_, _, err = s.LoadNearest(1)
	require.ErrorAs(t, err, &rsnap.SnapshotMissingError{})
}

func TestStore_ringOverwrite(t *testing.T) {
	t.Parallel()

	s := rsnap.New(4)
	for f := rframe.Frame(0); f < 10; f++ {
		s.Save(f, []byte{byte(f)})
	}

	// Only the last capacity-worth of frames survives.
	for f := rframe.Frame(0); f < 6; f++ {
		_, err := s.Load(f)
		require.Error(t, err, "frame %d", f)
	}
	for f := rframe.Frame(6); f < 10; f++ {
		got, err := s.Load(f)
		require.NoError(t, err)
		require.Equal(t, []byte{byte(f)}, got)
	}
}

func TestStore_evictBefore(t *testing.T) {
	t.Parallel()

	s := rsnap.New(8)
	for f := rframe.Frame(0); f < 6; f++ {
		s.Save(f, []byte{byte(f)})
	}

	s.EvictBefore(3)

	_, err := s.Load(2)
	require.Error(t, err)

	_, ok := s.Checksum(2)
	require.False(t, ok)

	got, err := s.Load(3)
	require.NoError(t, err)
	require.Equal(t, []byte{3}, got)
}

func TestStore_checksumStableAcrossResave(t *testing.T) {
	t.Parallel()

	s := rsnap.New(8)
	state := rtest.RandomDataForTest(t, 32)

	first := s.Save(1, state)
	second := s.Save(1, state)
	require.Equal(t, first, second)
}
