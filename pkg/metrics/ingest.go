package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics contains Prometheus metrics for the diagnostics ingest
// consumer.
type IngestMetrics struct {
	MessagesTotal      *prometheus.CounterVec
	ConsumerErrors     *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ReadingsStored     prometheus.Counter
}

// NewIngestMetrics creates and registers ingest consumer metrics.
func NewIngestMetrics(namespace string) *IngestMetrics {
	m := &IngestMetrics{
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "messages_total",
				Help:      "Total number of messages consumed",
			},
			[]string{"queue", "status"}, // status: success, error
		),
		ConsumerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "errors_total",
				Help:      "Total number of consumer errors",
			},
			[]string{"queue", "error_type"},
		),
		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "processing_duration_seconds",
				Help:      "Duration of message processing",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"queue"},
		),
		ReadingsStored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "consumer",
				Name:      "readings_stored_total",
				Help:      "Total number of diagnostic readings persisted",
			},
		),
	}

	MustRegister(
		m.MessagesTotal,
		m.ConsumerErrors,
		m.ProcessingDuration,
		m.ReadingsStored,
	)

	return m
}
