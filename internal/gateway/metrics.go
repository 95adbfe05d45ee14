// ABOUTME: Prometheus metrics for the gateway
// ABOUTME: Login counters, active streaming connections, and dropped-event counts

package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricSet holds the gateway's Prometheus collectors on a private
// registry, so tests can build multiple gateways without duplicate
// registration panics.
type metricSet struct {
	registry *prometheus.Registry

	loginsTotal        *prometheus.CounterVec
	streamConnections  prometheus.Gauge
	streamDroppedTotal prometheus.Counter
}

func newMetricSet() *metricSet {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &metricSet{
		registry: reg,
		loginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		streamConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_stream_connections",
			Help: "Currently open streaming connections.",
		}),
		streamDroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_stream_dropped_events_total",
			Help: "Events dropped because a connection's outbound queue was full.",
		}),
	}
}

// ConnOpened implements stream.Metrics.
func (m *metricSet) ConnOpened() { m.streamConnections.Inc() }

// ConnClosed implements stream.Metrics.
func (m *metricSet) ConnClosed() { m.streamConnections.Dec() }

// EventDropped implements stream.Metrics.
func (m *metricSet) EventDropped() { m.streamDroppedTotal.Inc() }
