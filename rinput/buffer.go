// Package rinput holds the per-player, per-frame input window
// that a rollback session draws on for stepping and replay.
package rinput

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/rewind-engine/rewind/rframe"
)

// Buffer is a fixed-capacity ring of inputs,
// indexed by frame modulo the capacity, with one lane per player.
//
// Each slot is either confirmed (the player's true input, received or local)
// or predicted (a local guess awaiting confirmation).
// Confirmed values are immutable;
// a predicted value is overwritten at most once, by its confirmation.
//
// Buffer is not safe for concurrent use.
// The session owns it and touches it only from the tick goroutine.
type Buffer struct {
	players  int
	capacity int

	// inputs[p][slot], frames[p][slot].
	// The frame recorded per slot is what distinguishes
	// a live entry from a stale one awaiting recycling.
	inputs [][]rframe.Input
	frames [][]rframe.Frame

	// One bit per slot per player; set means confirmed.
	confirmed []*bitset.BitSet

	// Highest frame such that the player's inputs
	// for every frame up to and including it are confirmed.
	frontier []rframe.Frame

	// Most recent confirmed input per player, for prediction.
	lastConfirmed      []rframe.Input
	lastConfirmedFrame []rframe.Frame
}

// New returns a Buffer for the given player count,
// retaining capacity frames per player.
func New(players, capacity int) *Buffer {
	if players <= 0 || capacity <= 0 {
		panic(fmt.Errorf(
			"BUG: invalid input buffer dimensions (%d players, capacity %d)",
			players, capacity,
		))
	}

	b := &Buffer{
		players:  players,
		capacity: capacity,

		inputs:    make([][]rframe.Input, players),
		frames:    make([][]rframe.Frame, players),
		confirmed: make([]*bitset.BitSet, players),
		frontier:  make([]rframe.Frame, players),

		lastConfirmed:      make([]rframe.Input, players),
		lastConfirmedFrame: make([]rframe.Frame, players),
	}

	for p := range players {
		b.inputs[p] = make([]rframe.Input, capacity)
		b.frames[p] = make([]rframe.Frame, capacity)
		for i := range b.frames[p] {
			b.frames[p][i] = rframe.NullFrame
		}
		b.confirmed[p] = bitset.MustNew(uint(capacity))
		b.frontier[p] = rframe.NullFrame
		b.lastConfirmedFrame[p] = rframe.NullFrame
	}

	return b
}

func (b *Buffer) slot(f rframe.Frame) uint {
	return uint(f) % uint(b.capacity)
}

func (b *Buffer) checkArgs(p rframe.Player, f rframe.Frame) {
	if int(p) >= b.players {
		panic(fmt.Errorf("BUG: player %d out of range (have %d)", p, b.players))
	}
	if f < 0 {
		panic(fmt.Errorf("BUG: negative frame %d", f))
	}
}

// Set stores the input for (p, f).
//
// Writing a frame to a slot still occupied by an older frame recycles
// the slot; that is how the window rolls forward.
// Confirming a predicted slot overwrites its value.
// Re-confirming an already confirmed slot with the same value is a no-op;
// with a different value it panics, because a confirmed input is immutable
// and the caller is expected to have screened remote equivocation already.
func (b *Buffer) Set(p rframe.Player, f rframe.Frame, in rframe.Input, confirmed bool) {
	b.checkArgs(p, f)

	s := b.slot(f)

	if b.frames[p][s] == f && b.confirmed[p].Test(s) {
		if b.inputs[p][s] != in {
			panic(fmt.Errorf(
				"BUG: rewriting confirmed input for player %d frame %d (%#x -> %#x)",
				p, f, b.inputs[p][s], in,
			))
		}
		return
	}

	if b.frames[p][s] != f && b.frames[p][s] > f {
		// The slot has been recycled for a newer frame already;
		// writing an older frame would corrupt the window.
		panic(fmt.Errorf(
			"BUG: frame %d for player %d is outside the window (slot holds %d)",
			f, p, b.frames[p][s],
		))
	}

	b.frames[p][s] = f
	b.inputs[p][s] = in
	b.confirmed[p].SetTo(s, confirmed)

	if confirmed {
		if f >= b.lastConfirmedFrame[p] {
			b.lastConfirmed[p] = in
			b.lastConfirmedFrame[p] = f
		}
		b.advanceFrontier(p)
	}
}

func (b *Buffer) advanceFrontier(p rframe.Player) {
	for {
		next := b.frontier[p] + 1
		s := b.slot(next)
		if b.frames[p][s] != next || !b.confirmed[p].Test(s) {
			return
		}
		b.frontier[p] = next
	}
}

// Get returns the stored input for (p, f) and whether it is confirmed.
// Requesting a frame that is not in the window panics:
// the session saves an input for every frame it simulates,
// so a miss means a window sizing or indexing bug, not a runtime condition.
func (b *Buffer) Get(p rframe.Player, f rframe.Frame) (rframe.Input, bool) {
	b.checkArgs(p, f)

	s := b.slot(f)
	if b.frames[p][s] != f {
		panic(fmt.Errorf(
			"BUG: input for player %d frame %d not in window (slot holds %d)",
			p, f, b.frames[p][s],
		))
	}

	return b.inputs[p][s], b.confirmed[p].Test(s)
}

// Has reports whether (p, f) currently occupies its slot.
func (b *Buffer) Has(p rframe.Player, f rframe.Frame) bool {
	b.checkArgs(p, f)
	return b.frames[p][b.slot(f)] == f
}

// ConfirmedFrame returns the highest frame for which every player's
// input is confirmed, or [rframe.NullFrame] before any such frame exists.
func (b *Buffer) ConfirmedFrame() rframe.Frame {
	min := b.frontier[0]
	for _, f := range b.frontier[1:] {
		if f < min {
			min = f
		}
	}
	return min
}

// Frontier returns the player's highest contiguously confirmed frame.
func (b *Buffer) Frontier(p rframe.Player) rframe.Frame {
	b.checkArgs(p, 0)
	return b.frontier[p]
}

// LastConfirmed returns the most recent confirmed input for the player.
// The second return is false if the player has no confirmed input yet,
// in which case the caller falls back to its configured default.
func (b *Buffer) LastConfirmed(p rframe.Player) (rframe.Input, bool) {
	b.checkArgs(p, 0)
	return b.lastConfirmed[p], b.lastConfirmedFrame[p] != rframe.NullFrame
}

// Inputs collects the full input vector for frame f.
// Every lane must be populated; a missing lane panics like [Buffer.Get].
func (b *Buffer) Inputs(f rframe.Frame) rframe.Inputs {
	out := make(rframe.Inputs, b.players)
	for p := range out {
		out[p], _ = b.Get(rframe.Player(p), f)
	}
	return out
}
