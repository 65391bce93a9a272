package rpubsub_test

import (
	"context"
	"testing"

	"github.com/rewind-engine/rewind/internal/rtest"
	"github.com/rewind-engine/rewind/rpubsub"
	"github.com/stretchr/testify/require"
)

func TestStream_Publish_panicsOnCalledTwice(t *testing.T) {
	t.Parallel()

	s := rpubsub.NewStream[int]()
	s.Publish(1)

	require.Panics(t, func() {
		s.Publish(1)
	})
}

func TestCollect_drainsInOrderWithoutBlocking(t *testing.T) {
	t.Parallel()

	s := rpubsub.NewStream[int]()

	// Nothing published yet: empty drain, same resume point.
	vals, next := rpubsub.Collect(s)
	require.Empty(t, vals)
	require.Same(t, s, next)

	head := s
	head.Publish(1)
	head = head.Next
	head.Publish(2)
	head = head.Next
	head.Publish(3)

	vals, next = rpubsub.Collect(s)
	require.Equal(t, []int{1, 2, 3}, vals)

	// Resuming sees only what is published afterward.
	next.Publish(4)
	vals, _ = rpubsub.Collect(next)
	require.Equal(t, []int{4}, vals)
}

func TestRunChannelToStream_stopsOnContextDone(t *testing.T) {
	t.Parallel()

	// Unbuffered so we know sends are received.
	ch := make(chan int)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, done := rpubsub.RunChannelToStream(ctx, ch)

	rtest.SendSoon(t, ch, 1)
	rtest.SendSoon(t, ch, 2)
	cancel()

	rtest.ReceiveSoon(t, done)

	rtest.IsSending(t, s.Ready)
	require.Equal(t, s.Val, 1)

	s = s.Next

	rtest.IsSending(t, s.Ready)
	require.Equal(t, s.Val, 2)

	s = s.Next
	rtest.NotSending(t, s.Ready)
}

func TestRunChannelToStream_stopsOnChannelClosed(t *testing.T) {
	t.Parallel()

	// Unbuffered so we know sends are received.
	ch := make(chan int)

	s, done := rpubsub.RunChannelToStream(context.Background(), ch)

	rtest.SendSoon(t, ch, 1)
	close(ch)

	rtest.ReceiveSoon(t, done)

	rtest.IsSending(t, s.Ready)
	require.Equal(t, s.Val, 1)

	s = s.Next
	rtest.NotSending(t, s.Ready)
}
