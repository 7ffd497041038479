package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Handshake response codes.
const (
	HandshakeOK                 = 200
	HandshakeBadRequest         = 400
	HandshakeServerError        = 500
	HandshakeUnsupportedVersion = 501
)

// DefaultSerializer is assumed when the server omits or mangles the
// serializer field.
const DefaultSerializer = "json"

// ClientSys describes the client library, sent in the handshake request.
type ClientSys struct {
	Platform          string `json:"platform,omitempty"`
	LibVersion        string `json:"libVersion,omitempty"`
	ClientBuildNumber string `json:"clientBuildNumber,omitempty"`
	ClientVersion     string `json:"clientVersion,omitempty"`
}

// ClientHandshake is the body of the client's Handshake packet.
type ClientHandshake struct {
	Sys  ClientSys      `json:"sys"`
	User map[string]any `json:"user,omitempty"`
}

// ServerSys carries the session parameters chosen by the server.
type ServerSys struct {
	Heartbeat  int               `json:"heartbeat,omitempty"` // seconds, 0 disables
	Dict       map[string]uint16 `json:"dict,omitempty"`
	Serializer string            `json:"serializer,omitempty"`
	UseDict    bool              `json:"useDict,omitempty"`
}

// ServerHandshake is the body of the server's Handshake packet.
type ServerHandshake struct {
	Code int       `json:"code"`
	Sys  ServerSys `json:"sys"`
}

// OK reports whether the server accepted the handshake.
func (sh *ServerHandshake) OK() bool {
	return sh.Code == HandshakeOK
}

// HeartbeatInterval returns the heartbeat period, or 0 when disabled.
func (sh *ServerHandshake) HeartbeatInterval() time.Duration {
	if sh.Sys.Heartbeat <= 0 {
		return 0
	}
	return time.Duration(sh.Sys.Heartbeat) * time.Second
}

// Dictionary builds the route dictionary announced by the server.
func (sh *ServerHandshake) Dictionary() (*Dictionary, error) {
	return NewDictionary(sh.Sys.Dict)
}

// Err returns ErrHandshakeFailed carrying the code when the handshake was
// rejected, and nil otherwise.
func (sh *ServerHandshake) Err() error {
	if sh.OK() {
		return nil
	}
	return fmt.Errorf("%w: code %d", ErrHandshakeFailed, sh.Code)
}

// EncodeClientHandshake encodes a ClientHandshake to a packet body.
func EncodeClientHandshake(ch *ClientHandshake) ([]byte, error) {
	return json.Marshal(ch)
}

// DecodeClientHandshake decodes a client handshake body.
// A compressed body is inflated first.
func DecodeClientHandshake(data []byte) (*ClientHandshake, error) {
	ch := &ClientHandshake{}
	if err := decodeHandshake(data, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// EncodeServerHandshake encodes a ServerHandshake to a packet body.
func EncodeServerHandshake(sh *ServerHandshake) ([]byte, error) {
	return json.Marshal(sh)
}

// DecodeServerHandshake decodes a server handshake body.
// A compressed body is inflated first, and an empty serializer falls
// back to DefaultSerializer.
func DecodeServerHandshake(data []byte) (*ServerHandshake, error) {
	sh := &ServerHandshake{}
	if err := decodeHandshake(data, sh); err != nil {
		return nil, err
	}
	if sh.Sys.Serializer == "" {
		sh.Sys.Serializer = DefaultSerializer
	}
	return sh, nil
}

func decodeHandshake(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalidHandshake)
	}
	if IsCompressed(data) {
		inflated, err := Decompress(data)
		if err != nil {
			return err
		}
		data = inflated
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHandshake, err)
	}
	return nil
}
