// Package rcast distributes the agreed initial world snapshot
// from the match host to every player before a session starts.
//
// The snapshot is split into datagram-sized shards with Reed-Solomon
// parity, so a receiver can reconstruct it even when some shards are
// lost in flight. That matches the unreliable path the session will
// use for input traffic afterward; no reliable side channel is needed.
//
// This is a single trusted origin handing one payload to known peers,
// so a whole-payload checksum is sufficient integrity protection;
// there are no untrusted relays to defend against with per-shard proofs.
package rcast

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/reedsolomon"
)

// Header describes an origination.
// The host sends it over the (reliable) signaling path it already has;
// shards then travel as datagrams.
type Header struct {
	NumData   uint16
	NumParity uint16

	// Size of every shard in bytes. The last data shard is
	// zero-padded up to this during encoding.
	ShardSize uint32

	// Length of the original payload, to strip the padding.
	PayloadSize uint32

	// xxhash of the original payload.
	Checksum uint64
}

// Origination is an encoded snapshot ready to transmit.
type Origination struct {
	Header Header

	// Shards[i] is the framed datagram for shard i:
	// a 2-byte little-endian shard index, then the shard data.
	Shards [][]byte
}

const shardFrameOverhead = 2

// Originate erasure-codes the payload into shards of at most shardSize
// data bytes each, adding ceil(parityRatio * dataShards) parity shards.
func Originate(payload []byte, shardSize int, parityRatio float32) (Origination, error) {
	if len(payload) == 0 {
		return Origination{}, fmt.Errorf("empty payload")
	}
	if shardSize <= 0 {
		return Origination{}, fmt.Errorf("invalid shard size %d", shardSize)
	}
	if parityRatio < 0 {
		return Origination{}, fmt.Errorf("invalid parity ratio %f", parityRatio)
	}

	nData := (len(payload) + shardSize - 1) / shardSize
	nParity := int(parityRatio * float32(nData))
	if nParity == 0 {
		// reedsolomon requires at least one parity shard,
		// and a hand-off with zero loss tolerance would be pointless anyway.
		nParity = 1
	}

	if nData+nParity > (1<<16)-1 {
		return Origination{}, fmt.Errorf(
			"payload too large: %d data and %d parity shards, limit is %d",
			nData, nParity, (1<<16)-1,
		)
	}

	enc, err := reedsolomon.New(nData, nParity)
	if err != nil {
		return Origination{}, fmt.Errorf("failed to build Reed-Solomon encoder: %w", err)
	}

	shards, err := enc.Split(payload)
	if err != nil {
		return Origination{}, fmt.Errorf("failed to split payload: %w", err)
	}
	if err := enc.Encode(shards); err != nil {
		return Origination{}, fmt.Errorf("failed to erasure-code payload: %w", err)
	}

	o := Origination{
		Header: Header{
			NumData:     uint16(nData),
			NumParity:   uint16(nParity),
			ShardSize:   uint32(len(shards[0])),
			PayloadSize: uint32(len(payload)),
			Checksum:    xxhash.Sum64(payload),
		},
		Shards: make([][]byte, len(shards)),
	}

	for i, s := range shards {
		framed := make([]byte, shardFrameOverhead+len(s))
		binary.LittleEndian.PutUint16(framed, uint16(i))
		copy(framed[shardFrameOverhead:], s)
		o.Shards[i] = framed
	}

	return o, nil
}

// Acceptance accumulates shards on the receiving side
// until the payload can be reconstructed.
//
// Acceptance is not safe for concurrent use.
type Acceptance struct {
	header Header

	enc reedsolomon.Encoder

	shards [][]byte
	have   int
}

// NewAcceptance prepares to receive the origination described by h.
func NewAcceptance(h Header) (*Acceptance, error) {
	if h.NumData == 0 {
		return nil, fmt.Errorf("header has zero data shards")
	}

	enc, err := reedsolomon.New(int(h.NumData), int(h.NumParity))
	if err != nil {
		return nil, fmt.Errorf("failed to build Reed-Solomon decoder: %w", err)
	}

	return &Acceptance{
		header: h,
		enc:    enc,
		shards: make([][]byte, int(h.NumData)+int(h.NumParity)),
	}, nil
}

// AddPacket records one framed shard datagram.
// Duplicates are absorbed; a duplicate index with different content
// is rejected, as is any malformed frame.
func (a *Acceptance) AddPacket(p []byte) error {
	if len(p) != shardFrameOverhead+int(a.header.ShardSize) {
		return fmt.Errorf(
			"shard packet must be %d bytes, got %d",
			shardFrameOverhead+int(a.header.ShardSize), len(p),
		)
	}

	idx := int(binary.LittleEndian.Uint16(p))
	if idx >= len(a.shards) {
		return fmt.Errorf("shard index %d out of range (%d shards)", idx, len(a.shards))
	}

	data := p[shardFrameOverhead:]
	if a.shards[idx] != nil {
		if !bytes.Equal(a.shards[idx], data) {
			return fmt.Errorf("conflicting content for shard %d", idx)
		}
		return nil
	}

	a.shards[idx] = bytes.Clone(data)
	a.have++
	return nil
}

// Ready reports whether enough shards have arrived to reconstruct.
func (a *Acceptance) Ready() bool {
	return a.have >= int(a.header.NumData)
}

// Reconstruct rebuilds and returns the original payload.
// It fails if too few shards have arrived
// or if the reconstructed payload fails the header checksum.
func (a *Acceptance) Reconstruct() ([]byte, error) {
	if !a.Ready() {
		return nil, fmt.Errorf(
			"not enough shards: have %d, need %d", a.have, a.header.NumData,
		)
	}

	if err := a.enc.Reconstruct(a.shards); err != nil {
		return nil, fmt.Errorf("failed to reconstruct payload: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(int(a.header.PayloadSize))
	if err := a.enc.Join(&buf, a.shards, int(a.header.PayloadSize)); err != nil {
		return nil, fmt.Errorf("failed to join shards: %w", err)
	}

	payload := buf.Bytes()
	if sum := xxhash.Sum64(payload); sum != a.header.Checksum {
		return nil, fmt.Errorf(
			"payload checksum mismatch: computed %016x, header says %016x",
			sum, a.header.Checksum,
		)
	}

	return payload, nil
}
