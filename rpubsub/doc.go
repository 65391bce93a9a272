// Package rpubsub provides the single-writer hand-off mechanism
// between background transport goroutines and the session's
// single-threaded tick.
//
// A [Stream] is a linked list of event-driven values:
// the transport publishes as packets decode,
// and the session drains whatever has accumulated, without blocking,
// once per tick via [Collect].
package rpubsub
