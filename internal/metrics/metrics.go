package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gangaguard"

// Metrics holds the watcher's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	samples        *prometheus.CounterVec
	confirmations  prometheus.Counter
	suppressed     prometheus.Counter
	dispatches     *prometheus.CounterVec
	rejected       prometheus.Counter
	latency        prometheus.Histogram
	sessionState   prometheus.Gauge
	cooldownRemain prometheus.Gauge
}

// New creates and registers all collectors. hubClients, when non-nil, is
// exported as a gauge of connected event subscribers.
func New(hubClients func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Detection samples processed, by whether anything was detected",
		}, []string{"detected"}),
		confirmations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Samples on which a detection was confirmed",
		}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressed_total",
			Help:      "Confirmed samples held back by the cooldown",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Finished dispatch attempts, by outcome",
		}, []string{"outcome"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_rejected_total",
			Help:      "Submissions refused because a dispatch was in flight",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time taken by dispatch attempts",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		sessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current session state (0 idle, 1 watching, 2 cooldown)",
		}),
		cooldownRemain: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cooldown_remaining_seconds",
			Help:      "Time left before another incident may be sent",
		}),
	}

	m.registry.MustRegister(
		m.samples,
		m.confirmations,
		m.suppressed,
		m.dispatches,
		m.rejected,
		m.latency,
		m.sessionState,
		m.cooldownRemain,
	)

	if hubClients != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "event_subscribers",
				Help:      "Connected event feed clients",
			},
			func() float64 { return float64(hubClients()) },
		))
	}

	return m
}

func (m *Metrics) ObserveSample(detected bool) {
	if m == nil {
		return
	}
	label := "false"
	if detected {
		label = "true"
	}
	m.samples.WithLabelValues(label).Inc()
}

func (m *Metrics) Confirmed() {
	if m == nil {
		return
	}
	m.confirmations.Inc()
}

func (m *Metrics) Suppressed() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

func (m *Metrics) Rejected() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

// ObserveDispatch records a finished attempt.
func (m *Metrics) ObserveDispatch(success bool, latency time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.dispatches.WithLabelValues(outcome).Inc()
	m.latency.Observe(latency.Seconds())
}

// SetState records the session state and the cooldown left.
func (m *Metrics) SetState(state int, cooldownRemaining time.Duration) {
	if m == nil {
		return
	}
	m.sessionState.Set(float64(state))
	m.cooldownRemain.Set(cooldownRemaining.Seconds())
}

// Handler returns the HTTP handler serving the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
