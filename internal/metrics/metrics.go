// Package metrics owns the Prometheus collectors the daemon exports and the
// registry they live on, served by the gateway at /metrics.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector. One instance is shared by the router,
// the stream manager, and the session hub.
type Metrics struct {
	registry *prometheus.Registry

	// Requests counts router dispatches by message type and outcome.
	Requests *prometheus.CounterVec
	// RequestDuration tracks router dispatch latency by message type.
	RequestDuration *prometheus.HistogramVec
	// StreamTokens counts tokens relayed to clients across all streams.
	StreamTokens prometheus.Counter
	// ActiveStreams gauges generation streams currently in flight.
	ActiveStreams prometheus.Gauge
	// ConnectedClients gauges WebSocket sessions currently open.
	ConnectedClients prometheus.Gauge
}

// New creates the collectors and registers them on registry. A nil registry
// gets a private one, which keeps tests isolated from each other.
func New(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glossa_requests_total",
			Help: "Requests dispatched by the router, by message type and outcome.",
		}, []string{"type", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glossa_request_duration_seconds",
			Help:    "Router dispatch latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		StreamTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glossa_stream_tokens_total",
			Help: "Tokens relayed to clients across all streams.",
		}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "glossa_active_streams",
			Help: "Generation streams currently in flight.",
		}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "glossa_connected_clients",
			Help: "WebSocket clients currently connected.",
		}),
	}

	collectors := []prometheus.Collector{
		m.Requests,
		m.RequestDuration,
		m.StreamTokens,
		m.ActiveStreams,
		m.ConnectedClients,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
