package protocol

import (
	"errors"
	"fmt"
	"io"
)

// MessageType identifies the kind of message carried in a Data packet.
type MessageType uint8

const (
	MessageRequest  MessageType = 0x00 // Client → Server, expects a Response
	MessageNotify   MessageType = 0x01 // Client → Server, fire and forget
	MessageResponse MessageType = 0x02 // Server → Client, answers a Request
	MessagePush     MessageType = 0x03 // Server → Client, unsolicited
)

// Flag byte layout.
//
//	 7   6   5       4      3   2   1      0
//	┌───┬───┬───────┬──────┬───────────┬────────────────┐
//	│ - │ - │ error │ gzip │ type (3b) │ route compress │
//	└───┴───┴───────┴──────┴───────────┴────────────────┘
const (
	flagRouteCompressed byte = 0x01
	flagCompressed      byte = 0x10
	flagError           byte = 0x20

	typeMask  byte = 0x07
	typeShift      = 1
)

const (
	// MessageHeaderSize is the minimum size of an encoded message:
	// the flag byte plus at least one id or route byte.
	MessageHeaderSize = 2

	// MaxRouteLength is the longest literal route a message can carry.
	MaxRouteLength = 0xFF
)

// Valid reports whether mt is one of the four message types.
func (mt MessageType) Valid() bool {
	return mt <= MessagePush
}

// HasID reports whether messages of this type carry a request id.
func (mt MessageType) HasID() bool {
	return mt == MessageRequest || mt == MessageResponse
}

// Routable reports whether messages of this type carry a route.
func (mt MessageType) Routable() bool {
	return mt == MessageRequest || mt == MessageNotify || mt == MessagePush
}

// String returns the string representation of the message type.
func (mt MessageType) String() string {
	switch mt {
	case MessageRequest:
		return "Request"
	case MessageNotify:
		return "Notify"
	case MessageResponse:
		return "Response"
	case MessagePush:
		return "Push"
	default:
		return "Unknown"
	}
}

// Message is the envelope carried in the body of a Data packet.
type Message struct {
	Type  MessageType
	ID    uint64 // Request and Response only
	Route string // Request, Notify and Push only
	Err   bool   // Body is an error payload
	Body  []byte // Decompressed payload

	// Wire variant observed by Decode. Encode ignores both.
	CompressedRoute bool
	Gzipped         bool
}

// NewRequest creates a request message.
func NewRequest(id uint64, route string, body []byte) *Message {
	return &Message{Type: MessageRequest, ID: id, Route: route, Body: body}
}

// NewNotify creates a notify message.
func NewNotify(route string, body []byte) *Message {
	return &Message{Type: MessageNotify, Route: route, Body: body}
}

// NewResponse creates a response message.
func NewResponse(id uint64, body []byte) *Message {
	return &Message{Type: MessageResponse, ID: id, Body: body}
}

// NewErrorResponse creates a response message flagged as an error.
func NewErrorResponse(id uint64, body []byte) *Message {
	return &Message{Type: MessageResponse, ID: id, Err: true, Body: body}
}

// NewPush creates a push message.
func NewPush(route string, body []byte) *Message {
	return &Message{Type: MessagePush, Route: route, Body: body}
}

// String returns a short description for logs.
func (m *Message) String() string {
	switch {
	case m.Type.HasID() && m.Type.Routable():
		return fmt.Sprintf("%s id=%d route=%s len=%d", m.Type, m.ID, m.Route, len(m.Body))
	case m.Type.HasID():
		return fmt.Sprintf("%s id=%d len=%d", m.Type, m.ID, len(m.Body))
	default:
		return fmt.Sprintf("%s route=%s len=%d", m.Type, m.Route, len(m.Body))
	}
}

// Codec encodes and decodes messages against a route dictionary.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	dict        *Dictionary
	compression Compression
	level       int
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithDictionary sets the route compression dictionary.
func WithDictionary(d *Dictionary) CodecOption {
	return func(c *Codec) {
		c.dict = d
	}
}

// WithCompression sets the body compression used by Encode.
// Decode accepts compressed bodies regardless of this setting.
func WithCompression(comp Compression) CodecOption {
	return func(c *Codec) {
		c.compression = comp
	}
}

// WithCompressionLevel sets the compress/flate level used by Encode
// (default DefaultCompressionLevel). flate.NoCompression is honored.
func WithCompressionLevel(level int) CodecOption {
	return func(c *Codec) {
		c.level = level
	}
}

// NewCodec creates a codec. Without options it has an empty dictionary and
// never compresses.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{level: DefaultCompressionLevel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dictionary returns the codec's route dictionary (possibly nil).
func (c *Codec) Dictionary() *Dictionary {
	return c.dict
}

// Compression returns the body compression used by Encode.
func (c *Codec) Compression() Compression {
	return c.compression
}

// Encode serializes m:
//
//	[flag: 1][id: varint, Request/Response][route: code(2) | len(1)+bytes, routable][body]
func (c *Codec) Encode(m *Message) ([]byte, error) {
	if m == nil || !m.Type.Valid() {
		return nil, ErrWrongMessageType
	}

	flag := byte(m.Type) << typeShift
	if m.Err {
		flag |= flagError
	}

	var code uint16
	compressRoute := false
	if m.Type.Routable() {
		code, compressRoute = c.dict.Code(m.Route)
		if compressRoute {
			flag |= flagRouteCompressed
		} else if len(m.Route) > MaxRouteLength {
			return nil, fmt.Errorf("%w: %d bytes", ErrRouteTooLong, len(m.Route))
		}
	}

	body := m.Body
	if c.compression != CompressionNone && len(body) > 0 {
		compressed, err := Compress(c.compression, c.level, body)
		if err != nil {
			return nil, err
		}
		if len(compressed) < len(body) {
			body = compressed
			flag |= flagCompressed
		}
	}

	e := NewEncoderWithCap(1 + MaxVarintLen + 1 + len(m.Route) + len(body))
	e.WriteByte(flag)
	if m.Type.HasID() {
		e.WriteUvarint(m.ID)
	}
	if m.Type.Routable() {
		if compressRoute {
			e.WriteUint16(code)
		} else {
			e.WriteShortString(m.Route)
		}
	}
	e.WriteBytes(body)
	return e.Bytes(), nil
}

// Decode parses a Data packet body into a Message.
func (c *Codec) Decode(data []byte) (*Message, error) {
	if len(data) < MessageHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMessage, len(data))
	}

	d := NewDecoder(data)
	flag, _ := d.ReadByte()

	mt := MessageType((flag >> typeShift) & typeMask)
	if !mt.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrWrongMessageType, uint8(mt))
	}

	m := &Message{
		Type: mt,
		Err:  flag&flagError != 0,
	}

	if mt.HasID() {
		id, err := d.ReadUvarint()
		if err != nil {
			return nil, truncated(err, "id")
		}
		m.ID = id
	}

	if mt.Routable() {
		if flag&flagRouteCompressed != 0 {
			code, err := d.ReadUint16()
			if err != nil {
				return nil, truncated(err, "route code")
			}
			route, ok := c.dict.Route(code)
			if !ok {
				return nil, fmt.Errorf("%w: code %d", ErrRouteInfoNotFound, code)
			}
			m.Route = route
			m.CompressedRoute = true
		} else {
			route, err := d.ReadShortString()
			if err != nil {
				return nil, truncated(err, "route")
			}
			m.Route = route
		}
	}

	m.Body = d.Rest()
	if flag&flagCompressed != 0 {
		body, err := Decompress(m.Body)
		if err != nil {
			return nil, err
		}
		m.Body = body
		m.Gzipped = true
	}

	return m, nil
}

func truncated(err error, field string) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrInvalidMessage, field)
	}
	return err
}

// EncodeMessage encodes m with dict and no body compression.
func EncodeMessage(m *Message, dict *Dictionary) ([]byte, error) {
	return NewCodec(WithDictionary(dict)).Encode(m)
}

// DecodeMessage decodes data with dict.
func DecodeMessage(data []byte, dict *Dictionary) (*Message, error) {
	return NewCodec(WithDictionary(dict)).Decode(data)
}
