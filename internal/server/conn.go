package server

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/gamewire/internal/errors"
	"github.com/vango-dev/gamewire/pkg/protocol"
)

// Connection states.
const (
	stateInit      int32 = iota // waiting for Handshake
	stateHandshake              // handshake answered, waiting for HandshakeAck
	stateWorking                // ack received, Data flows
)

// conn is one client connection. The read loop owns buf; writes from the
// read loop, the heartbeat ticker and Broadcast share writeMu.
type conn struct {
	srv    *Server
	t      transport
	buf    *protocol.PacketBuffer
	logger *slog.Logger

	state atomic.Int32

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func (s *Server) serveTransport(ctx context.Context, t transport) {
	c := &conn{
		srv:    s,
		t:      t,
		buf:    protocol.NewPacketBuffer(),
		logger: s.logger.With("remote", t.RemoteAddr(), "transport", t.Kind()),
		done:   make(chan struct{}),
	}

	if !s.track(c) {
		t.Close()
		c.logger.Debug("connection refused during shutdown")
		return
	}
	s.metrics.connOpened(t.Kind())
	c.logger.Debug("connection opened")
	defer func() {
		c.close()
		s.metrics.connClosed()
		c.logger.Debug("connection closed")
		s.untrack(c)
	}()

	go func() {
		select {
		case <-ctx.Done():
			c.close()
		case <-c.done:
		}
	}()

	c.readLoop(ctx)
}

func (c *conn) readLoop(ctx context.Context) {
	c.t.SetReadDeadline(time.Now().Add(c.srv.handshakeTimeout))

	for {
		chunk, err := c.t.ReadChunk()
		if err != nil {
			if !isClosed(err) {
				c.logger.Warn("read error", "error", err)
			}
			return
		}
		c.srv.metrics.bytesIn(len(chunk))

		packets, err := c.buf.Feed(chunk)
		for _, p := range packets {
			if !c.handlePacket(ctx, p) {
				return
			}
		}
		if err != nil {
			c.srv.metrics.decodeError("packet")
			c.logger.Warn("malformed packet stream", "error", errors.New("G205").Wrap(err))
			return
		}
	}
}

// handlePacket processes one inbound packet and reports whether the
// connection stays open.
func (c *conn) handlePacket(ctx context.Context, p protocol.Packet) bool {
	c.srv.metrics.packetIn(p)
	if c.state.Load() == stateWorking {
		c.refreshDeadline()
	}

	switch p.Type {
	case protocol.PacketHandshake:
		return c.handleHandshake(p.Body)

	case protocol.PacketHandshakeAck:
		if !c.state.CompareAndSwap(stateHandshake, stateWorking) {
			c.logger.Warn("unexpected handshake ack")
			return true
		}
		c.refreshDeadline()
		if interval := c.srv.cfg.HeartbeatInterval(); interval > 0 {
			go c.heartbeat(interval)
		}
		return true

	case protocol.PacketHeartbeat:
		return true

	case protocol.PacketData:
		return c.handleData(ctx, p.Body)

	case protocol.PacketKick:
		c.logger.Info("client sent kick")
		return false
	}
	return true
}

func (c *conn) handleHandshake(body []byte) bool {
	if c.state.Load() != stateInit {
		c.logger.Warn("duplicate handshake")
		return true
	}

	ch, err := protocol.DecodeClientHandshake(body)
	if err != nil {
		c.logger.Warn("handshake rejected", "error", errors.New("G202").Wrap(err))
		c.rejectHandshake(protocol.HandshakeBadRequest)
		return false
	}

	if err := c.srv.checkVersion(ch.Sys.LibVersion); err != nil {
		c.logger.Warn("handshake rejected", "error", err, "platform", ch.Sys.Platform)
		c.rejectHandshake(protocol.HandshakeUnsupportedVersion)
		return false
	}

	if err := c.write(protocol.PacketHandshake, c.srv.handshakeOK); err != nil {
		c.logger.Warn("write error", "error", err)
		return false
	}
	c.srv.metrics.handshake(protocol.HandshakeOK)
	c.state.Store(stateHandshake)
	c.logger.Debug("handshake accepted",
		"platform", ch.Sys.Platform,
		"libVersion", ch.Sys.LibVersion,
	)
	return true
}

func (c *conn) rejectHandshake(code int) {
	c.srv.metrics.handshake(code)
	body, err := protocol.EncodeServerHandshake(&protocol.ServerHandshake{Code: code})
	if err != nil {
		return
	}
	if err := c.write(protocol.PacketHandshake, body); err != nil {
		c.logger.Debug("write error", "error", err)
	}
}

func (c *conn) handleData(ctx context.Context, body []byte) bool {
	if c.state.Load() != stateWorking {
		c.srv.metrics.decodeError("state")
		c.logger.Warn("data before handshake ack")
		return true
	}

	m, err := c.srv.codec.Decode(body)
	if err != nil {
		c.srv.metrics.decodeError("message")
		c.logger.Warn("message decode failed", "error", errors.New("G206").Wrap(err))
		if c.srv.cfg.KickOnDecodeError {
			if err := c.write(protocol.PacketKick, nil); err != nil {
				c.logger.Debug("write error", "error", err)
			}
			return false
		}
		return true
	}
	c.srv.metrics.message("in", m.Type)

	reply := c.srv.dispatch(ctx, c.logger, m)
	if reply == nil {
		return true
	}
	if err := c.sendMessage(reply); err != nil {
		c.logger.Warn("write error", "error", err)
		return false
	}
	return true
}

// dispatch runs the handler for m inside a span and returns the reply to
// send, if any.
func (s *Server) dispatch(ctx context.Context, logger *slog.Logger, m *protocol.Message) *protocol.Message {
	ctx, span := s.tracer.Start(ctx, "gamewire."+m.Type.String(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("gamewire.route", m.Route),
			attribute.Int64("gamewire.id", int64(m.ID)),
			attribute.Bool("gamewire.compressed", m.Gzipped),
		),
	)
	defer span.End()

	label := m.Route
	if _, ok := s.dict.Code(label); !ok {
		label = "other"
	}

	start := time.Now()
	reply, err := s.handler.HandleMessage(ctx, m)
	s.metrics.handlerDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("handler failed", "route", m.Route, "id", m.ID, "error", errors.New("G204").Wrap(err))
		if m.Type != protocol.MessageRequest {
			return nil
		}
		reply = protocol.NewErrorResponse(m.ID, handlerErrorBody(err))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if reply != nil && m.Type == protocol.MessageRequest {
		reply.Type = protocol.MessageResponse
		reply.ID = m.ID
	}
	return reply
}

func (c *conn) sendMessage(m *protocol.Message) error {
	body, err := c.srv.codec.Encode(m)
	if err != nil {
		return err
	}
	if err := c.write(protocol.PacketData, body); err != nil {
		return err
	}
	c.srv.metrics.message("out", m.Type)
	return nil
}

// push sends a framed Push packet if the connection finished its
// handshake.
func (c *conn) push(pkt []byte) bool {
	if c.state.Load() != stateWorking {
		return false
	}
	if err := c.writeFrame(protocol.PacketData, pkt); err != nil {
		c.logger.Debug("push failed", "error", err)
		return false
	}
	c.srv.metrics.message("out", protocol.MessagePush)
	return true
}

func (c *conn) write(pt protocol.PacketType, body []byte) error {
	pkt, err := protocol.Frame(pt, body)
	if err != nil {
		return err
	}
	return c.writeFrame(pt, pkt)
}

func (c *conn) writeFrame(pt protocol.PacketType, pkt []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.t.Write(pkt); err != nil {
		return err
	}
	c.srv.metrics.packetOut(pt, len(pkt))
	return nil
}

func (c *conn) heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(protocol.PacketHeartbeat, nil); err != nil {
				c.logger.Debug("heartbeat failed", "error", err)
				c.close()
				return
			}
		}
	}
}

// refreshDeadline allows two missed heartbeats before the read fails.
// With heartbeats disabled reads never time out.
func (c *conn) refreshDeadline() {
	interval := c.srv.cfg.HeartbeatInterval()
	if interval <= 0 {
		c.t.SetReadDeadline(time.Time{})
		return
	}
	c.t.SetReadDeadline(time.Now().Add(2 * interval))
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.t.Close()
	})
}

func isClosed(err error) bool {
	return stderrors.Is(err, io.EOF) ||
		stderrors.Is(err, net.ErrClosed) ||
		stderrors.Is(err, io.ErrClosedPipe) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
