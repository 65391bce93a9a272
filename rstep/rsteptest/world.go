// Package rsteptest provides a small deterministic reference world
// for exercising rollback sessions in tests.
//
// The world is deliberately simple: one point body per player,
// velocity driven by the movement bitmask, a speed clamp,
// and a per-frame wind jitter drawn from an RNG whose seed
// travels inside the state bytes.
// Everything is Q16.16 fixed point, so replays are byte-identical.
package rsteptest

import (
	"encoding/binary"
	"fmt"

	"github.com/rewind-engine/rewind/rframe"
	"github.com/rewind-engine/rewind/rmath"
	"github.com/rewind-engine/rewind/rstep"
)

const (
	headerSize = 8  // RNG seed
	playerSize = 16 // posX, posY, velX, velY
)

var (
	accel    = rmath.FromInt(10)
	maxSpeed = rmath.FromInt(40)
)

// World is a stateless [rstep.Stepper] over the encoding
// produced by [NewState].
type World struct{}

var _ rstep.Stepper = World{}

// NewState returns the serialized initial state for n players,
// all at the origin with zero velocity, carrying the given RNG seed.
func NewState(n int, seed uint64) []byte {
	b := make([]byte, headerSize+n*playerSize)
	binary.LittleEndian.PutUint64(b, seed)
	return b
}

// PlayerState is the decoded per-player portion of the world.
type PlayerState struct {
	PosX, PosY rmath.Fixed
	VelX, VelY rmath.Fixed
}

// State is the decoded world, for test assertions.
type State struct {
	RNG     uint64
	Players []PlayerState
}

// DecodeState decodes state bytes produced by [NewState] or [World.Step].
// It panics on a malformed length; this is a test helper.
func DecodeState(b []byte) State {
	if (len(b)-headerSize)%playerSize != 0 {
		panic(fmt.Errorf("BUG: state length %d does not decode", len(b)))
	}

	s := State{
		RNG:     binary.LittleEndian.Uint64(b),
		Players: make([]PlayerState, (len(b)-headerSize)/playerSize),
	}
	for i := range s.Players {
		off := headerSize + i*playerSize
		s.Players[i] = PlayerState{
			PosX: rmath.Fixed(binary.LittleEndian.Uint32(b[off:])),
			PosY: rmath.Fixed(binary.LittleEndian.Uint32(b[off+4:])),
			VelX: rmath.Fixed(binary.LittleEndian.Uint32(b[off+8:])),
			VelY: rmath.Fixed(binary.LittleEndian.Uint32(b[off+12:])),
		}
	}
	return s
}

func encodeState(s State) []byte {
	b := make([]byte, headerSize+len(s.Players)*playerSize)
	binary.LittleEndian.PutUint64(b, s.RNG)
	for i, p := range s.Players {
		off := headerSize + i*playerSize
		binary.LittleEndian.PutUint32(b[off:], uint32(p.PosX))
		binary.LittleEndian.PutUint32(b[off+4:], uint32(p.PosY))
		binary.LittleEndian.PutUint32(b[off+8:], uint32(p.VelX))
		binary.LittleEndian.PutUint32(b[off+12:], uint32(p.VelY))
	}
	return b
}

func (World) Step(state []byte, in rframe.Inputs) []byte {
	s := DecodeState(state)
	if len(in) != len(s.Players) {
		panic(fmt.Errorf(
			"BUG: %d inputs for %d players", len(in), len(s.Players),
		))
	}

	// One RNG advance per frame, before player updates,
	// so the wind is identical for every player this frame.
	s.RNG = xorshift64(s.RNG)
	wind := rmath.Fixed(int32(s.RNG&0xFF) - 128)

	for i := range s.Players {
		p := &s.Players[i]

		// Opposing directions cancel rather than winning by order.
		up := in[i]&rframe.InputUp != 0
		down := in[i]&rframe.InputDown != 0
		left := in[i]&rframe.InputLeft != 0
		right := in[i]&rframe.InputRight != 0

		switch {
		case right && !left:
			p.VelX += accel
		case left && !right:
			p.VelX -= accel
		default:
			p.VelX = 0
		}

		switch {
		case up && !down:
			p.VelY += accel
		case down && !up:
			p.VelY -= accel
		default:
			p.VelY = 0
		}

		speed := rmath.Sqrt(p.VelX.Mul(p.VelX) + p.VelY.Mul(p.VelY))
		if speed > maxSpeed {
			scale := maxSpeed.Div(speed)
			p.VelX = p.VelX.Mul(scale)
			p.VelY = p.VelY.Mul(scale)
		}

		p.PosX += p.VelX + wind
		p.PosY += p.VelY
	}

	return encodeState(s)
}

func xorshift64(x uint64) uint64 {
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	return x
}
