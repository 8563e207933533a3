package client

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "gocdp"

// metrics holds the client's collectors. A nil *metrics records nothing.
type metrics struct {
	commands   *prometheus.CounterVec
	pending    prometheus.Gauge
	dispatched *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	discarded  *prometheus.CounterVec
}

// newMetrics registers the collectors with reg. Collectors already present
// in reg, for instance from another client, are shared.
func newMetrics(reg prometheus.Registerer, logger *slog.Logger) *metrics {
	if reg == nil {
		return nil
	}

	m := &metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_total",
			Help:      "Commands sent, by method and outcome.",
		}, []string{"method", "outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pending_requests",
			Help:      "Commands awaiting a reply.",
		}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_dispatched_total",
			Help:      "Notifications delivered to subscribers, by event.",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_dropped_total",
			Help:      "Notifications a subscriber did not receive, by event and reason.",
		}, []string{"event", "reason"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_discarded_total",
			Help:      "Inbound frames discarded without effect, by reason.",
		}, []string{"reason"}),
	}

	m.commands = register(reg, m.commands, logger)
	m.pending = register(reg, m.pending, logger)
	m.dispatched = register(reg, m.dispatched, logger)
	m.dropped = register(reg, m.dropped, logger)
	m.discarded = register(reg, m.discarded, logger)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, logger *slog.Logger) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		logger.Warn("failed to register metric", "error", err)
	}
	return c
}

func (m *metrics) commandDone(method, outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(method, outcome).Inc()
}

func (m *metrics) pendingAdd(delta float64) {
	if m == nil {
		return
	}
	m.pending.Add(delta)
}

func (m *metrics) eventDispatched(event string, subscribers int) {
	if m == nil || subscribers == 0 {
		return
	}
	m.dispatched.WithLabelValues(event).Add(float64(subscribers))
}

func (m *metrics) eventDropped(event, reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(event, reason).Inc()
}

func (m *metrics) frameDiscarded(reason string) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(reason).Inc()
}
