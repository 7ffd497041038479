package server

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/gamewire/pkg/protocol"
)

func TestMetricsOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(
		WithRegistry(reg),
		WithNamespace("mock"),
		WithConstLabels(prometheus.Labels{"env": "test"}),
		WithBuckets([]float64{0.1, 1}),
	)
	if m.Registry() != reg {
		t.Fatalf("Registry() did not return the configured registry")
	}

	m.connOpened("ws")
	m.packetOut(protocol.PacketHeartbeat, protocol.PacketHeaderSize)
	m.handlerDuration.WithLabelValues("a.b").Observe(0.5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
		for _, metric := range mf.GetMetric() {
			var env string
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "env" {
					env = lp.GetValue()
				}
			}
			if env != "test" {
				t.Errorf("%s is missing the env const label", mf.GetName())
			}
		}
		if mf.GetName() == "mock_handler_duration_seconds" {
			if n := len(mf.GetMetric()[0].GetHistogram().GetBucket()); n != 2 {
				t.Errorf("histogram has %d buckets, want 2", n)
			}
		}
	}

	for _, want := range []string{
		"mock_connections_active",
		"mock_connections_total",
		"mock_packets_total",
		"mock_bytes_total",
		"mock_handler_duration_seconds",
	} {
		if !names[want] {
			t.Errorf("metric %s not gathered", want)
		}
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.connOpened("tcp")
	m.connOpened("tcp")
	m.connClosed()
	m.decodeError("message")
	m.handshake(protocol.HandshakeUnsupportedVersion)
	m.bytesIn(12)

	if got := testutil.ToFloat64(m.connectionsActive); got != 1 {
		t.Errorf("connections_active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.connectionsTotal.WithLabelValues("tcp")); got != 2 {
		t.Errorf("connections_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.decodeErrors.WithLabelValues("message")); got != 1 {
		t.Errorf("decode_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.handshakesTotal.WithLabelValues("501")); got != 1 {
		t.Errorf("handshakes_total{code=501} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.bytesTotal.WithLabelValues("in")); got != 12 {
		t.Errorf("bytes_total{in} = %v, want 12", got)
	}
}

func TestWithTracerName(t *testing.T) {
	s, err := New(nil, WithTracerName("mock-tracer"))
	if err != nil {
		t.Fatal(err)
	}
	if s.tracer == nil {
		t.Errorf("tracer not set")
	}
}
