package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/gamewire/pkg/protocol"
)

// MetricsConfig configures the Prometheus collectors of a Server.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "gamewire").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for handler duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: a fresh registry, so several servers can coexist in a process.
	Registry *prometheus.Registry
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the handler duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "gamewire",
		Buckets:   prometheus.DefBuckets,
	}
}

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	connectionsActive prometheus.Gauge
	connectionsTotal  *prometheus.CounterVec
	packetsTotal      *prometheus.CounterVec
	messagesTotal     *prometheus.CounterVec
	bytesTotal        *prometheus.CounterVec
	decodeErrors      *prometheus.CounterVec
	handshakesTotal   *prometheus.CounterVec
	handlerDuration   *prometheus.HistogramVec
}

// NewMetrics registers the gamewire collectors.
//
// Metrics collected:
//   - gamewire_connections_active: Gauge of open connections
//   - gamewire_connections_total: Counter of accepted connections by transport
//   - gamewire_packets_total: Counter of packets by direction and type
//   - gamewire_messages_total: Counter of Data messages by direction and type
//   - gamewire_bytes_total: Counter of wire bytes by direction
//   - gamewire_decode_errors_total: Counter of framing and message errors
//   - gamewire_handshakes_total: Counter of handshakes by response code
//   - gamewire_handler_duration_seconds: Histogram of handler latency by route
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(config.Registry)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}

	return &Metrics{
		registry: config.Registry,

		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "connections_active",
			Help:        "Number of open client connections",
			ConstLabels: config.ConstLabels,
		}),
		connectionsTotal: counter("connections_total", "Total accepted connections", "transport"),
		packetsTotal:     counter("packets_total", "Total packets by direction and type", "direction", "type"),
		messagesTotal:    counter("messages_total", "Total Data messages by direction and type", "direction", "type"),
		bytesTotal:       counter("bytes_total", "Total wire bytes by direction", "direction"),
		decodeErrors:     counter("decode_errors_total", "Total packet and message decode errors", "kind"),
		handshakesTotal:  counter("handshakes_total", "Total handshakes by response code", "code"),

		handlerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "handler_duration_seconds",
			Help:        "Message handler duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) connOpened(transport string) {
	m.connectionsActive.Inc()
	m.connectionsTotal.WithLabelValues(transport).Inc()
}

func (m *Metrics) connClosed() {
	m.connectionsActive.Dec()
}

func (m *Metrics) packetIn(p protocol.Packet) {
	m.packetsTotal.WithLabelValues("in", p.Type.String()).Inc()
}

func (m *Metrics) packetOut(pt protocol.PacketType, n int) {
	m.packetsTotal.WithLabelValues("out", pt.String()).Inc()
	m.bytesTotal.WithLabelValues("out").Add(float64(n))
}

func (m *Metrics) bytesIn(n int) {
	m.bytesTotal.WithLabelValues("in").Add(float64(n))
}

func (m *Metrics) message(direction string, mt protocol.MessageType) {
	m.messagesTotal.WithLabelValues(direction, mt.String()).Inc()
}

func (m *Metrics) decodeError(kind string) {
	m.decodeErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) handshake(code int) {
	m.handshakesTotal.WithLabelValues(codeLabel(code)).Inc()
}

func codeLabel(code int) string {
	switch code {
	case protocol.HandshakeOK:
		return "200"
	case protocol.HandshakeBadRequest:
		return "400"
	case protocol.HandshakeServerError:
		return "500"
	case protocol.HandshakeUnsupportedVersion:
		return "501"
	default:
		return "other"
	}
}
