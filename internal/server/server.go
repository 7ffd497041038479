package server

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/gamewire/internal/config"
	"github.com/vango-dev/gamewire/internal/errors"
	"github.com/vango-dev/gamewire/pkg/protocol"
)

const (
	// DefaultHandshakeTimeout bounds the wait for a client's Handshake packet.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds the graceful stop of HTTP listeners.
	DefaultShutdownTimeout = 5 * time.Second

	defaultTracerName = "gamewire"
)

// Server is a Pitaya-compatible mock peer. It accepts clients over TCP,
// TLS and WebSocket, performs the handshake, keeps heartbeats going and
// hands decoded Data messages to a Handler.
type Server struct {
	cfg        *config.Config
	codec      *protocol.Codec
	dict       *protocol.Dictionary
	constraint *semver.Constraints

	// handshakeOK is the pre-encoded body of an accepted handshake.
	handshakeOK []byte

	handler          Handler
	metrics          *Metrics
	tracer           trace.Tracer
	upgrader         websocket.Upgrader
	handshakeTimeout time.Duration
	logger           *slog.Logger

	// mu guards conns and closing. wg counts tracked connections and is
	// only added to under mu while closing is false.
	mu      sync.Mutex
	conns   map[*conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithHandler replaces the default EchoHandler.
func WithHandler(h Handler) Option {
	return func(s *Server) {
		s.handler = h
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the collectors the server records into.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracerName sets the OpenTelemetry tracer name (default: "gamewire").
func WithTracerName(name string) Option {
	return func(s *Server) {
		s.tracer = otel.Tracer(name)
	}
}

// WithHandshakeTimeout sets how long a new connection may stay silent
// before its Handshake packet arrives.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.handshakeTimeout = d
	}
}

// New creates a Server from cfg. A nil cfg uses config.New().
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dict, err := cfg.Dictionary()
	if err != nil {
		return nil, errors.New("G105").Wrap(err)
	}
	constraint, err := cfg.VersionConstraint()
	if err != nil {
		return nil, errors.New("G106").Wrap(err)
	}

	codecOpts := []protocol.CodecOption{
		protocol.WithCompression(cfg.CompressionMode()),
	}
	if cfg.UseDict {
		codecOpts = append(codecOpts, protocol.WithDictionary(dict))
	}

	handshakeOK, err := protocol.EncodeServerHandshake(&protocol.ServerHandshake{
		Code: protocol.HandshakeOK,
		Sys: protocol.ServerSys{
			Heartbeat:  cfg.Heartbeat,
			Dict:       dict.Routes(),
			Serializer: cfg.Serializer,
			UseDict:    cfg.UseDict,
		},
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:              cfg,
		codec:            protocol.NewCodec(codecOpts...),
		dict:             dict,
		constraint:       constraint,
		handshakeOK:      handshakeOK,
		handler:          EchoHandler{},
		tracer:           otel.Tracer(defaultTracerName),
		handshakeTimeout: DefaultHandshakeTimeout,
		logger:           slog.Default().With("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readChunkSize,
			WriteBufferSize: readChunkSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s, nil
}

// Serve starts every configured listener and blocks until ctx is done or
// a listener fails. Open connections are closed before it returns.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 4)

	if s.cfg.TCP != "" {
		ln, err := net.Listen("tcp", s.cfg.TCP)
		if err != nil {
			return errors.New("G201").WithField("tcp").Wrap(err)
		}
		s.logger.Info("listening", "transport", "tcp", "address", ln.Addr().String())
		go func() { errCh <- s.ServeListener(ctx, ln, "tcp") }()
	}

	if s.cfg.TLS != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLSCert, s.cfg.TLSKey)
		if err != nil {
			return errors.New("G207").Wrap(err)
		}
		ln, err := tls.Listen("tcp", s.cfg.TLS, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
		if err != nil {
			return errors.New("G201").WithField("tls").Wrap(err)
		}
		s.logger.Info("listening", "transport", "tls", "address", ln.Addr().String())
		go func() { errCh <- s.ServeListener(ctx, ln, "tls") }()
	}

	httpServers := s.httpServers()
	for name, hs := range httpServers {
		name := name
		ln, err := net.Listen("tcp", hs.Addr)
		if err != nil {
			return errors.New("G201").WithField(name).Wrap(err)
		}
		s.logger.Info("listening", "transport", name, "address", ln.Addr().String())
		go func(hs *http.Server) {
			if err := hs.Serve(ln); !stderrors.Is(err, http.ErrServerClosed) {
				errCh <- errors.New("G201").WithField(name).Wrap(err)
			}
		}(hs)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	cancel()

	s.logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer stop()
	for _, hs := range httpServers {
		if serr := hs.Shutdown(shutdownCtx); serr != nil {
			s.logger.Error("shutdown error", "error", serr)
		}
	}
	s.closeAll()
	s.wg.Wait()

	s.logger.Info("server shutdown complete")
	return err
}

// httpServers returns the HTTP servers for the WebSocket and admin
// listeners, keyed by config field. Equal addresses share one server.
func (s *Server) httpServers() map[string]*http.Server {
	newHTTP := func(addr string, h http.Handler) *http.Server {
		return &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: DefaultHandshakeTimeout}
	}

	servers := make(map[string]*http.Server)
	if s.cfg.WS != "" && s.cfg.WS == s.cfg.Admin {
		servers["ws"] = newHTTP(s.cfg.WS, s.Handler())
		return servers
	}
	if s.cfg.WS != "" {
		servers["ws"] = newHTTP(s.cfg.WS, s.WebSocketHandler())
	}
	if s.cfg.Admin != "" {
		servers["admin"] = newHTTP(s.cfg.Admin, s.AdminHandler())
	}
	return servers
}

// ServeListener accepts stream connections from ln until ctx is done.
// kind labels the transport in logs and metrics ("tcp", "tls").
func (s *Server) ServeListener(ctx context.Context, ln net.Listener, kind string) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if stderrors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return errors.New("G201").WithField(kind).Wrap(err)
		}

		go s.serveTransport(ctx, newStreamTransport(nc, kind))
	}
}

// ServeConn runs the protocol on an already accepted stream connection
// and blocks until it closes. Once Serve has begun shutting down the
// connection is closed immediately.
func (s *Server) ServeConn(ctx context.Context, nc net.Conn) {
	s.serveTransport(ctx, newStreamTransport(nc, "tcp"))
}

// HandleWebSocket upgrades the request and runs the protocol over binary
// WebSocket messages.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	ws.SetReadLimit(protocol.PacketHeaderSize + protocol.MaxPacketSize)

	s.serveTransport(r.Context(), &wsTransport{conn: ws})
}

// Broadcast pushes a message on route to every connection that finished
// its handshake and returns how many received it. The push is encoded
// once; a route or body that cannot be framed fails before any send.
func (s *Server) Broadcast(route string, body []byte) (int, error) {
	msg, err := s.codec.Encode(protocol.NewPush(route, body))
	if err != nil {
		return 0, err
	}
	pkt, err := protocol.Frame(protocol.PacketData, msg)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	targets := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	sent := 0
	for _, c := range targets {
		if c.push(pkt) {
			sent++
		}
	}
	return sent, nil
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Dictionary returns the route dictionary announced to clients.
func (s *Server) Dictionary() *protocol.Dictionary {
	return s.dict
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// checkVersion applies the minClientVersion constraint to a client's
// library version.
func (s *Server) checkVersion(libVersion string) error {
	if s.constraint == nil {
		return nil
	}
	v, err := semver.NewVersion(libVersion)
	if err != nil {
		return errors.New("G203").
			WithDetailf("libVersion %q is not a semantic version", libVersion).
			Wrap(err)
	}
	if !s.constraint.Check(v) {
		return errors.New("G203").
			WithDetailf("libVersion %s does not satisfy %s", v, s.constraint)
	}
	return nil
}

// track registers c and reports false once shutdown has begun.
func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) shuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// closeAll refuses new connections and closes the tracked ones.
func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	for c := range s.conns {
		c.close()
	}
}
