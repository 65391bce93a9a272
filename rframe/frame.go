package rframe

// Frame identifies one fixed-timestep simulation tick.
// Frames increase monotonically from zero for the duration of a match.
type Frame int32

// NullFrame is the sentinel for "no frame".
// It sorts before every valid frame,
// which makes it a convenient initial value
// for confirmation frontiers and pending-rollback markers.
const NullFrame Frame = -1

// Player is a player's index within a match.
// Player indexes are assigned at session setup
// and are identical on every peer.
type Player uint8

// Input is the encoded per-frame input value for one player.
//
// The low four bits are the movement bitmask.
// The remaining bits are available to the simulation owner;
// the session never interprets them.
type Input uint16

const (
	InputUp    Input = 0b00001
	InputDown  Input = 0b00010
	InputLeft  Input = 0b00100
	InputRight Input = 0b01000
)

// Inputs is the full input vector for one frame,
// indexed by player.
type Inputs []Input

// Clone returns an independent copy of the vector.
func (in Inputs) Clone() Inputs {
	out := make(Inputs, len(in))
	copy(out, in)
	return out
}
