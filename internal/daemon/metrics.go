package daemon

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the scheduling core.
type Metrics struct {
	registry             *prometheus.Registry
	actionsExecutedTotal *prometheus.CounterVec
	broadcastsScheduled  prometheus.Counter
	liveTransitionsTotal prometheus.Counter
	encoderFailuresTotal prometheus.Counter
	orphansPurgedTotal   prometheus.Counter
	pendingActions       prometheus.Gauge
}

// NewMetrics creates and registers the daemon's metric set on a private
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	actionsExecutedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stagehand_actions_executed_total",
		Help: "Total number of scheduled actions that fired, by kind",
	}, []string{"kind"})
	broadcastsScheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stagehand_broadcasts_scheduled_total",
		Help: "Total number of broadcasts scheduled",
	})
	liveTransitionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stagehand_live_transitions_total",
		Help: "Total number of broadcasts successfully transitioned to live",
	})
	encoderFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stagehand_encoder_failures_total",
		Help: "Total number of failed encoder connection attempts",
	})
	orphansPurgedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stagehand_orphans_purged_total",
		Help: "Total number of orphaned actions and rules removed by cleanup",
	})
	pendingActions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stagehand_pending_actions",
		Help: "Number of actions currently armed on one-shot timers",
	})

	registry.MustRegister(
		actionsExecutedTotal,
		broadcastsScheduled,
		liveTransitionsTotal,
		encoderFailuresTotal,
		orphansPurgedTotal,
		pendingActions,
	)

	return &Metrics{
		registry:             registry,
		actionsExecutedTotal: actionsExecutedTotal,
		broadcastsScheduled:  broadcastsScheduled,
		liveTransitionsTotal: liveTransitionsTotal,
		encoderFailuresTotal: encoderFailuresTotal,
		orphansPurgedTotal:   orphansPurgedTotal,
		pendingActions:       pendingActions,
	}
}

// IncActionExecuted counts one fired action of the given kind.
func (m *Metrics) IncActionExecuted(kind string) {
	m.actionsExecutedTotal.WithLabelValues(kind).Inc()
}

// IncScheduled counts one newly scheduled broadcast.
func (m *Metrics) IncScheduled() {
	m.broadcastsScheduled.Inc()
}

// IncLive counts one successful transition to live.
func (m *Metrics) IncLive() {
	m.liveTransitionsTotal.Inc()
}

// IncEncoderFailure counts one failed encoder connection attempt.
func (m *Metrics) IncEncoderFailure() {
	m.encoderFailuresTotal.Inc()
}

// AddPurged counts entries removed by an orphan cleanup pass.
func (m *Metrics) AddPurged(n int) {
	if n > 0 {
		m.orphansPurgedTotal.Add(float64(n))
	}
}

// SetPendingActions refreshes the armed-timer gauge.
func (m *Metrics) SetPendingActions(n int) {
	m.pendingActions.Set(float64(n))
}

// Handler serves the metric set. updateGauges runs before each scrape so
// gauges reflect the moment of collection.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
