package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/scribefs/scribe/pkg/metrics"
)

// nodeMetrics is the Prometheus implementation of metrics.NodeMetrics.
type nodeMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	bytesTotal      *prometheus.CounterVec
	streamWords     prometheus.Counter
	filesStored     prometheus.Gauge
}

// NewNodeMetrics creates a new Prometheus-backed storage node metrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewNodeMetrics() *nodeMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &nodeMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_node_requests_total",
				Help: "Total requests handled by the storage node, by wire tag and error code",
			},
			[]string{"tag", "code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scribe_node_request_duration_seconds",
				Help:    "Time spent in a storage node handler per request",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tag"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "scribe_node_content_bytes_total",
				Help: "Content bytes moved through handlers, by direction",
			},
			[]string{"direction"}, // "read", "write"
		),
		streamWords: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "scribe_node_stream_words_total",
				Help: "Words sent through STREAM responses",
			},
		),
		filesStored: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "scribe_node_files_stored",
				Help: "Files currently stored on this node",
			},
		),
	}
}

// RecordRequest records a completed request.
func (m *nodeMetrics) RecordRequest(tag string, code uint32, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(tag, strconv.FormatUint(uint64(code), 10)).Inc()
	m.requestDuration.WithLabelValues(tag).Observe(duration.Seconds())
}

// RecordBytesTransferred records content bytes moved through a handler.
func (m *nodeMetrics) RecordBytesTransferred(direction string, bytes uint64) {
	if m == nil {
		return
	}
	m.bytesTotal.WithLabelValues(direction).Add(float64(bytes))
}

// RecordStreamWord increments the streamed word counter.
func (m *nodeMetrics) RecordStreamWord() {
	if m == nil {
		return
	}
	m.streamWords.Inc()
}

// SetFilesStored updates the stored file gauge.
func (m *nodeMetrics) SetFilesStored(count int) {
	if m == nil {
		return
	}
	m.filesStored.Set(float64(count))
}
