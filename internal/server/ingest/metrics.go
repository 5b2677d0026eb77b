package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts upload outcomes per endpoint.
type Metrics struct {
	uploads    *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	bytes      *prometheus.CounterVec
	fields     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstore",
				Subsystem: "ingest",
				Name:      "uploads_total",
				Help:      "Uploads by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		duplicates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstore",
				Subsystem: "ingest",
				Name:      "duplicates_total",
				Help:      "Digest conflicts by endpoint and resolution policy",
			},
			[]string{"endpoint", "policy"},
		),
		bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstore",
				Subsystem: "ingest",
				Name:      "stored_bytes_total",
				Help:      "Bytes written to the blob store",
			},
			[]string{"endpoint"},
		),
		fields: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstore",
				Subsystem: "ingest",
				Name:      "truncated_fields_total",
				Help:      "Multipart field values longer than the field size limit",
			},
			[]string{"endpoint"},
		),
	}
}

func (m *Metrics) upload(endpoint, outcome string) {
	if m != nil {
		m.uploads.WithLabelValues(endpoint, outcome).Inc()
	}
}

func (m *Metrics) duplicate(endpoint string, policy DuplicatePolicy) {
	if m != nil {
		m.duplicates.WithLabelValues(endpoint, string(policy)).Inc()
	}
}

func (m *Metrics) stored(endpoint string, n int64) {
	if m != nil && n > 0 {
		m.bytes.WithLabelValues(endpoint).Add(float64(n))
	}
}

func (m *Metrics) truncatedFields(endpoint string, n int64) {
	if m != nil && n > 0 {
		m.fields.WithLabelValues(endpoint).Add(float64(n))
	}
}
