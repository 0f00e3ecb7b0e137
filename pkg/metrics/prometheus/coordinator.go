// Package prometheus provides Prometheus-backed implementations of the
// metrics interfaces. Constructors return nil when metrics.InitRegistry was
// never called; every method is safe on a nil receiver.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/scribefs/scribe/pkg/metrics"
)

// coordinatorMetrics is the Prometheus implementation of
// metrics.CoordinatorMetrics.
type coordinatorMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	sessionsOpened   *prometheus.CounterVec
	sessionsClosed   *prometheus.CounterVec
	sessionsActive   prometheus.Gauge
	locksActive      prometheus.Gauge
	nodesAlive       prometheus.Gauge
	usersRegistered  prometheus.Gauge
}

// NewCoordinatorMetrics creates a new Prometheus-backed coordinator metrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCoordinatorMetrics() *coordinatorMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &coordinatorMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_coordinator_requests_total",
				Help: "Total requests handled by the coordinator, by wire tag and error code",
			},
			[]string{"tag", "code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scribe_coordinator_request_duration_seconds",
				Help:    "Time spent in the coordinator dispatcher per request",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tag"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scribe_coordinator_requests_in_flight",
				Help: "Requests currently being dispatched",
			},
			[]string{"tag"},
		),
		sessionsOpened: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_coordinator_sessions_opened_total",
				Help: "Total sessions accepted, by peer kind (client or node)",
			},
			[]string{"kind"},
		),
		sessionsClosed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_coordinator_sessions_closed_total",
				Help: "Total sessions closed, by peer kind (client or node)",
			},
			[]string{"kind"},
		),
		sessionsActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "scribe_coordinator_sessions_active",
				Help: "Currently open sessions",
			},
		),
		locksActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "scribe_coordinator_locks_active",
				Help: "Sentence locks currently held",
			},
		),
		nodesAlive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "scribe_coordinator_nodes_alive",
				Help: "Registered storage nodes currently alive",
			},
		),
		usersRegistered: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "scribe_coordinator_users_registered",
				Help: "Users known to the coordinator",
			},
		),
	}
}

// RecordRequest records a completed request.
func (m *coordinatorMetrics) RecordRequest(tag string, code uint32, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(tag, strconv.FormatUint(uint64(code), 10)).Inc()
	m.requestDuration.WithLabelValues(tag).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge for the tag.
func (m *coordinatorMetrics) RecordRequestStart(tag string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(tag).Inc()
}

// RecordRequestEnd decrements the in-flight gauge for the tag.
func (m *coordinatorMetrics) RecordRequestEnd(tag string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(tag).Dec()
}

// RecordSessionOpened increments the accepted session counter.
func (m *coordinatorMetrics) RecordSessionOpened(kind string) {
	if m == nil {
		return
	}
	m.sessionsOpened.WithLabelValues(kind).Inc()
}

// RecordSessionClosed increments the closed session counter.
func (m *coordinatorMetrics) RecordSessionClosed(kind string) {
	if m == nil {
		return
	}
	m.sessionsClosed.WithLabelValues(kind).Inc()
}

// SetActiveSessions updates the open session gauge.
func (m *coordinatorMetrics) SetActiveSessions(count int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(count))
}

// SetActiveLocks updates the sentence lock gauge.
func (m *coordinatorMetrics) SetActiveLocks(count int) {
	if m == nil {
		return
	}
	m.locksActive.Set(float64(count))
}

// SetNodesAlive updates the alive node gauge.
func (m *coordinatorMetrics) SetNodesAlive(count int) {
	if m == nil {
		return
	}
	m.nodesAlive.Set(float64(count))
}

// SetUsersRegistered updates the registered user gauge.
func (m *coordinatorMetrics) SetUsersRegistered(count int) {
	if m == nil {
		return
	}
	m.usersRegistered.Set(float64(count))
}
