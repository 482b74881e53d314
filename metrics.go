package ssehub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// hubMetrics holds the Prometheus instruments for a hub. A nil *hubMetrics
// is valid and records nothing, so the registry can stay metrics-agnostic.
type hubMetrics struct {
	connectionsActive prometheus.Gauge
	usersActive       prometheus.Gauge
	eventsSent        *prometheus.CounterVec
	sendErrors        prometheus.Counter
	handshakes        prometheus.Counter
}

func newHubMetrics(reg prometheus.Registerer) *hubMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &hubMetrics{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ssehub",
			Name:      "connections_active",
			Help:      "Number of currently open event stream connections",
		}),
		usersActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ssehub",
			Name:      "users_active",
			Help:      "Number of users with at least one open connection",
		}),
		eventsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ssehub",
			Name:      "events_sent_total",
			Help:      "Total events accepted for delivery, by event name",
		}, []string{"event"}),
		sendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ssehub",
			Name:      "send_errors_total",
			Help:      "Total frame deliveries that failed on a dead peer",
		}),
		handshakes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ssehub",
			Name:      "handshakes_total",
			Help:      "Total connected handshake events sent to new streams",
		}),
	}
}

func (m *hubMetrics) setGauges(clients, users int) {
	if m == nil {
		return
	}
	m.connectionsActive.Set(float64(clients))
	m.usersActive.Set(float64(users))
}

func (m *hubMetrics) eventSent(name string) {
	if m == nil {
		return
	}
	if name == "" {
		name = "message"
	}
	m.eventsSent.WithLabelValues(name).Inc()
}

func (m *hubMetrics) sendError() {
	if m == nil {
		return
	}
	m.sendErrors.Inc()
}

func (m *hubMetrics) handshake() {
	if m == nil {
		return
	}
	m.handshakes.Inc()
}
