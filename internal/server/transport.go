package server

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// readChunkSize is the size of a single read from a stream transport.
const readChunkSize = 4096

// transport moves raw bytes for one client. Stream transports deliver
// arbitrary fragments; WebSocket delivers one binary message per read,
// which may still hold several packets or part of one.
type transport interface {
	ReadChunk() ([]byte, error)
	Write(b []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
	RemoteAddr() string
	Kind() string
}

// streamTransport adapts a net.Conn (TCP or TLS).
type streamTransport struct {
	conn net.Conn
	kind string
	buf  []byte
}

func newStreamTransport(conn net.Conn, kind string) *streamTransport {
	return &streamTransport{conn: conn, kind: kind, buf: make([]byte, readChunkSize)}
}

func (t *streamTransport) ReadChunk() ([]byte, error) {
	n, err := t.conn.Read(t.buf)
	if n > 0 {
		// The packet buffer copies what it retains, so the read buffer
		// can be reused.
		return t.buf[:n], nil
	}
	return nil, err
}

func (t *streamTransport) Write(b []byte) error {
	_, err := t.conn.Write(b)
	return err
}

func (t *streamTransport) SetReadDeadline(d time.Time) error { return t.conn.SetReadDeadline(d) }
func (t *streamTransport) Close() error                      { return t.conn.Close() }
func (t *streamTransport) RemoteAddr() string                { return t.conn.RemoteAddr().String() }
func (t *streamTransport) Kind() string                      { return t.kind }

// wsTransport adapts a gorilla WebSocket connection.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadChunk() ([]byte, error) {
	for {
		mt, msg, err := t.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt == websocket.BinaryMessage {
			return msg, nil
		}
	}
}

func (t *wsTransport) Write(b []byte) error {
	return t.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (t *wsTransport) SetReadDeadline(d time.Time) error { return t.conn.SetReadDeadline(d) }
func (t *wsTransport) Close() error                      { return t.conn.Close() }
func (t *wsTransport) RemoteAddr() string                { return t.conn.RemoteAddr().String() }
func (t *wsTransport) Kind() string                      { return "ws" }
