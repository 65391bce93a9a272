package rquic

import (
	"encoding/binary"
	"fmt"

	"github.com/rewind-engine/rewind/rframe"
	"github.com/rewind-engine/rewind/rpeer"
)

// CurrentProtocolVersion is the first byte of every datagram.
const CurrentProtocolVersion byte = 1

// PacketType is a single byte header indicating the type of packet.
type PacketType byte

const (
	// Keep zero reserved.
	// Not using iota here, to avoid possibility of values changing across the wire.

	// An input report for one frame, with a piggybacked checksum report.
	InputPacketType PacketType = 1

	// Round-trip probes. The payload is the sender's local clock,
	// echoed back verbatim in the pong;
	// only the original sender ever interprets it.
	PingPacketType PacketType = 2
	PongPacketType PacketType = 3
)

const (
	inputPacketSize = 2 + 4 + 2 + 4 + 8
	probePacketSize = 2 + 8
)

// Packet is a decoded datagram.
// Which fields are meaningful depends on Type.
type Packet struct {
	Type PacketType

	// Set for InputPacketType.
	Input rpeer.Inbound

	// Set for ping and pong packets: the probe sender's clock reading.
	Nanos int64
}

// EncodeInput encodes an input report datagram.
func EncodeInput(o rpeer.Outbound) []byte {
	b := make([]byte, inputPacketSize)
	b[0] = CurrentProtocolVersion
	b[1] = byte(InputPacketType)
	binary.LittleEndian.PutUint32(b[2:], uint32(o.Frame))
	binary.LittleEndian.PutUint16(b[6:], uint16(o.Input))
	binary.LittleEndian.PutUint32(b[8:], uint32(o.ConfirmedFrame))
	binary.LittleEndian.PutUint64(b[12:], o.ConfirmedChecksum)
	return b
}

// EncodeProbe encodes a ping or pong datagram carrying nanos.
func EncodeProbe(t PacketType, nanos int64) []byte {
	if t != PingPacketType && t != PongPacketType {
		panic(fmt.Errorf("BUG: packet type %d is not a probe", t))
	}

	b := make([]byte, probePacketSize)
	b[0] = CurrentProtocolVersion
	b[1] = byte(t)
	binary.LittleEndian.PutUint64(b[2:], uint64(nanos))
	return b
}

// DecodePacket parses a received datagram.
// Unknown versions, unknown types, and short packets are errors;
// the channel drops such datagrams with a log line,
// since an unreliable transport has no one to report them to.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < 2 {
		return Packet{}, fmt.Errorf("packet too short: %d bytes", len(b))
	}
	if b[0] != CurrentProtocolVersion {
		return Packet{}, fmt.Errorf("unknown protocol version 0x%x", b[0])
	}

	switch PacketType(b[1]) {
	case InputPacketType:
		if len(b) != inputPacketSize {
			return Packet{}, fmt.Errorf(
				"input packet must be %d bytes, got %d", inputPacketSize, len(b),
			)
		}
		return Packet{
			Type: InputPacketType,
			Input: rpeer.Inbound{
				Frame:             rframe.Frame(binary.LittleEndian.Uint32(b[2:])),
				Input:             rframe.Input(binary.LittleEndian.Uint16(b[6:])),
				ConfirmedFrame:    rframe.Frame(binary.LittleEndian.Uint32(b[8:])),
				ConfirmedChecksum: binary.LittleEndian.Uint64(b[12:]),
			},
		}, nil

	case PingPacketType, PongPacketType:
		if len(b) != probePacketSize {
			return Packet{}, fmt.Errorf(
				"probe packet must be %d bytes, got %d", probePacketSize, len(b),
			)
		}
		return Packet{
			Type:  PacketType(b[1]),
			Nanos: int64(binary.LittleEndian.Uint64(b[2:])),
		}, nil

	default:
		return Packet{}, fmt.Errorf("unknown packet type 0x%x", b[1])
	}
}
