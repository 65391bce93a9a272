package rewind

import (
	"fmt"

	"github.com/rewind-engine/rewind/rframe"
)

// DesyncError is returned from [*Session.AdvanceFrame] when a
// peer-reported checksum disagrees with the locally computed checksum
// for the same confirmed frame.
//
// This means the two simulations have diverged. Recovering would
// require a full state resynchronization, which is out of scope here,
// so the error is terminal for the match: every subsequent call on the
// session returns it again.
type DesyncError struct {
	// The player whose report exposed the divergence.
	// The desync itself may have originated on either side.
	Player rframe.Player

	Frame rframe.Frame

	Local, Remote uint64
}

func (e DesyncError) Error() string {
	return fmt.Sprintf(
		"desync at frame %d: local checksum %016x, player %d reported %016x",
		e.Frame, e.Local, e.Player, e.Remote,
	)
}

// PeerDisconnectedError is returned from [*Session.AdvanceFrame]
// when a required peer's channel reports failure.
// The session moves to [StateDisconnected] and the match cannot continue.
type PeerDisconnectedError struct {
	Player rframe.Player
}

func (e PeerDisconnectedError) Error() string {
	return fmt.Sprintf("peer channel for player %d disconnected", e.Player)
}
