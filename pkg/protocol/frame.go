package protocol

import (
	"errors"
	"fmt"
	"io"
)

// Packet constants.
const (
	// PacketHeaderSize is the size of the packet header in bytes.
	PacketHeaderSize = 4

	// MaxPacketSize is the maximum body length a header may declare (64 KiB).
	MaxPacketSize = 64 * 1024
)

// PacketType identifies the type of packet.
type PacketType uint8

const (
	PacketHandshake    PacketType = 0x01 // Handshake request/response (JSON body)
	PacketHandshakeAck PacketType = 0x02 // Client acknowledges handshake
	PacketHeartbeat    PacketType = 0x03 // Keepalive, empty body
	PacketData         PacketType = 0x04 // Message codec payload
	PacketKick         PacketType = 0x05 // Server disconnects client
)

// Valid reports whether pt is one of the defined packet types.
func (pt PacketType) Valid() bool {
	switch pt {
	case PacketHandshake, PacketHandshakeAck, PacketHeartbeat, PacketData, PacketKick:
		return true
	default:
		return false
	}
}

// String returns the string representation of the packet type.
func (pt PacketType) String() string {
	switch pt {
	case PacketHandshake:
		return "Handshake"
	case PacketHandshakeAck:
		return "HandshakeAck"
	case PacketHeartbeat:
		return "Heartbeat"
	case PacketData:
		return "Data"
	case PacketKick:
		return "Kick"
	default:
		return "Unknown"
	}
}

// Packet is one length-delimited unit on the wire.
//
// Wire format (4 bytes header + variable body):
//
//	┌─────────────┬───────────────────────────────────────────┐
//	│ Packet Type │ Body Length                               │
//	│ (1 byte)    │ (3 bytes, big-endian)                     │
//	└─────────────┴───────────────────────────────────────────┘
//	│                                                         │
//	│  Body (Length bytes)                                    │
//	│                                                         │
//	└─────────────────────────────────────────────────────────┘
type Packet struct {
	Type   PacketType
	Length int
	Body   []byte
}

// NewPacket creates a packet with the given type and body.
func NewPacket(pt PacketType, body []byte) *Packet {
	return &Packet{
		Type:   pt,
		Length: len(body),
		Body:   body,
	}
}

// Encode encodes the packet to bytes including the header.
func (p *Packet) Encode() ([]byte, error) {
	return Frame(p.Type, p.Body)
}

// EncodeTo encodes the packet using the provided encoder.
func (p *Packet) EncodeTo(e *Encoder) error {
	if err := checkFrame(p.Type, p.Body); err != nil {
		return err
	}
	e.WriteByte(byte(p.Type))
	e.WriteUint24(uint32(len(p.Body)))
	e.WriteBytes(p.Body)
	return nil
}

// Frame serializes a packet of type pt carrying body.
// A nil or empty body produces a header with length 0.
func Frame(pt PacketType, body []byte) ([]byte, error) {
	if err := checkFrame(pt, body); err != nil {
		return nil, err
	}
	length := len(body)
	buf := make([]byte, PacketHeaderSize+length)
	buf[0] = byte(pt)
	buf[1] = byte(length >> 16)
	buf[2] = byte(length >> 8)
	buf[3] = byte(length)
	copy(buf[PacketHeaderSize:], body)
	return buf, nil
}

func checkFrame(pt PacketType, body []byte) error {
	if !pt.Valid() {
		return fmt.Errorf("%w: 0x%02x", ErrInvalidPacketType, uint8(pt))
	}
	if len(body) > MaxPacketSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(body))
	}
	return nil
}

// DecodePacketHeader decodes and validates a packet header, returning the
// type and declared body length.
func DecodePacketHeader(data []byte) (PacketType, int, error) {
	if len(data) < PacketHeaderSize {
		return 0, 0, ErrTruncatedHeader
	}

	pt := PacketType(data[0])
	if !pt.Valid() {
		return 0, 0, fmt.Errorf("%w: 0x%02x", ErrInvalidPacketType, data[0])
	}

	length := int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	if length > MaxPacketSize {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, length)
	}

	return pt, length, nil
}

// DecodePackets consumes every complete packet in buf, left to right.
//
// Bytes that do not yet form a complete packet (fewer than a header, or a
// header whose body has not fully arrived) are returned as remainder with a
// nil error; the caller prepends them to the next chunk read from the
// transport. A header that fails validation stops decoding: the packets
// before it are returned together with the unconsumed bytes and the error.
//
// Packet bodies and remainder are copies and never alias buf.
func DecodePackets(buf []byte) (packets []Packet, remainder []byte, err error) {
	offset := 0
	for len(buf)-offset >= PacketHeaderSize {
		pt, length, err := DecodePacketHeader(buf[offset:])
		if err != nil {
			return packets, clone(buf[offset:]), err
		}

		end := offset + PacketHeaderSize + length
		if end > len(buf) {
			break
		}

		body := clone(buf[offset+PacketHeaderSize : end])
		packets = append(packets, Packet{Type: pt, Length: length, Body: body})
		offset = end
	}

	if offset < len(buf) {
		remainder = clone(buf[offset:])
	}
	return packets, remainder, nil
}

// PacketBuffer accumulates inbound bytes for a single connection and
// yields complete packets as they become available.
//
// A PacketBuffer must be owned by one read loop; it is not safe for
// concurrent use.
type PacketBuffer struct {
	pending []byte
}

// NewPacketBuffer creates an empty packet buffer.
func NewPacketBuffer() *PacketBuffer {
	return &PacketBuffer{}
}

// Feed appends chunk to the retained bytes and returns every packet that is
// now complete. After a fatal header error the buffer keeps the offending
// bytes; the caller is expected to drop the connection.
func (b *PacketBuffer) Feed(chunk []byte) ([]Packet, error) {
	data := chunk
	if len(b.pending) > 0 {
		data = append(b.pending, chunk...)
	}
	packets, remainder, err := DecodePackets(data)
	b.pending = remainder
	return packets, err
}

// Buffered returns the number of bytes held for the next Feed.
func (b *PacketBuffer) Buffered() int {
	return len(b.pending)
}

// Reset discards any retained bytes.
func (b *PacketBuffer) Reset() {
	b.pending = nil
}

// ReadPacket reads a complete packet from an io.Reader.
func ReadPacket(r io.Reader) (*Packet, error) {
	header := make([]byte, PacketHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedHeader
		}
		return nil, err
	}

	pt, length, err := DecodePacketHeader(header)
	if err != nil {
		return nil, err
	}

	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
	}

	return &Packet{
		Type:   pt,
		Length: length,
		Body:   body,
	}, nil
}

// WritePacket writes a complete packet to an io.Writer.
func WritePacket(w io.Writer, p *Packet) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
