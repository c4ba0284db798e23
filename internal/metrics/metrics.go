// Package metrics exposes the relay's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pairline"

// Metrics holds every collector on a private registry, so several hubs can
// live in one process (tests do this).
type Metrics struct {
	registry *prometheus.Registry

	Connections   prometheus.Gauge
	Sessions      prometheus.Gauge
	QueueSize     prometheus.Gauge
	ActiveMatches prometheus.Gauge

	MatchesTotal   prometheus.Counter
	CallsEnded     *prometheus.CounterVec // by reason
	SignalsRelayed *prometheus.CounterVec // by event type
	Dropped        *prometheus.CounterVec // by reason
}

// New builds and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open websocket connections.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Users bound to a live connection.",
		}),
		QueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_size",
			Help:      "Users waiting to be paired.",
		}),
		ActiveMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_matches",
			Help:      "Matches currently in progress.",
		}),
		MatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Pairings made since start.",
		}),
		CallsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_ended_total",
			Help:      "Matches torn down, by reason.",
		}, []string{"reason"}),
		SignalsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_relayed_total",
			Help:      "Handshake messages forwarded, by event type.",
		}, []string{"type"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Inbound or outbound events dropped, by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Connections,
		m.Sessions,
		m.QueueSize,
		m.ActiveMatches,
		m.MatchesTotal,
		m.CallsEnded,
		m.SignalsRelayed,
		m.Dropped,
	)
	return m
}

// Handler exposes the registry at /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
