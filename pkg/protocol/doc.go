// Package protocol implements the packet framing and message encoding used
// between game clients and Pitaya-compatible servers.
//
// The package is pure: nothing in it performs I/O except ReadPacket and
// WritePacket, nothing logs, and every failure is returned to the caller as
// one of the sentinel errors in error.go (wrapped with context, so use
// errors.Is).
//
// # Packets
//
// A byte stream is a sequence of packets with a 4-byte header:
//
//	┌─────────────┬───────────────────────────────────────────┐
//	│ Packet Type │ Body Length                               │
//	│ (1 byte)    │ (3 bytes, big-endian, at most 64 KiB)     │
//	└─────────────┴───────────────────────────────────────────┘
//
// Packet types:
//
//   - PacketHandshake (0x01): JSON handshake request/response
//   - PacketHandshakeAck (0x02): Client acknowledges the handshake, empty
//   - PacketHeartbeat (0x03): Keepalive, empty
//   - PacketData (0x04): A message, see below
//   - PacketKick (0x05): Server terminates the session
//
// DecodePackets splits a buffer into complete packets and returns the bytes
// of any trailing partial packet; PacketBuffer keeps those bytes between
// reads for one connection.
//
// # Messages
//
// The body of a Data packet is a message:
//
//	[Flag: 1][ID: varint][Route: 2-byte code | 1-byte len + bytes][Body]
//
// The ID is present for requests and responses, the route for requests,
// notifies and pushes. Routes found in the Dictionary agreed at handshake
// time are sent as their 2-byte code. Bodies may be zlib or gzip compressed
// when that makes them smaller.
//
// # Usage Example
//
//	dict, err := protocol.NewDictionary(handshake.Sys.Dict)
//	codec := protocol.NewCodec(protocol.WithDictionary(dict))
//
//	// Outbound
//	body, err := codec.Encode(protocol.NewRequest(1, "connector.getsessiondata", payload))
//	wire, err := protocol.Frame(protocol.PacketData, body)
//
//	// Inbound
//	buf := protocol.NewPacketBuffer()
//	packets, err := buf.Feed(chunk)
//	for _, p := range packets {
//	    if p.Type == protocol.PacketData {
//	        msg, err := codec.Decode(p.Body)
//	        ...
//	    }
//	}
//
// # File Structure
//
//   - varint.go: Varint encoding/decoding
//   - encoder.go: Append-only binary encoder
//   - decoder.go: Read cursor
//   - frame.go: Packet types, framing and stream decoding
//   - message.go: Message types and the Codec
//   - dictionary.go: Route compression dictionary
//   - compression.go: Body compression
//   - handshake.go: Handshake payloads
//   - error.go: Errors
package protocol
