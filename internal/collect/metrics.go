package collect

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds all Prometheus metrics for the capture pipeline.
type Metrics struct {
	RecordsCaptured  prometheus.Counter
	RecordsRejected  prometheus.Counter
	RecordsTruncated prometheus.Counter
	RecordsDrained   prometheus.Counter
	DrainsTotal      prometheus.Counter
	ResetsTotal      prometheus.Counter
	RedactionsTotal  *prometheus.CounterVec
	BufferUsedBytes  prometheus.Gauge
	BufferCapacity   prometheus.Gauge
	CaptureDuration  prometheus.Histogram
}

// NewMetrics creates and registers all capture metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringlog_records_captured_total",
			Help: "Total records appended to the buffer",
		}),
		RecordsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringlog_records_rejected_total",
			Help: "Total records rejected by validation or level filter",
		}),
		RecordsTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringlog_records_truncated_total",
			Help: "Total records shrunk to fit the buffer",
		}),
		RecordsDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringlog_records_drained_total",
			Help: "Total records returned by drains",
		}),
		DrainsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringlog_drains_total",
			Help: "Total drain operations",
		}),
		ResetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringlog_resets_total",
			Help: "Total reset operations",
		}),
		RedactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ringlog_redactions_total",
			Help: "Total redaction hits by pattern name",
		}, []string{"pattern"}),
		BufferUsedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ringlog_buffer_used_bytes",
			Help: "Written but undrained bytes in the buffer",
		}),
		BufferCapacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ringlog_buffer_capacity_bytes",
			Help: "Configured buffer capacity in bytes",
		}),
		CaptureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ringlog_capture_duration_seconds",
			Help:    "Duration of a single capture including any overwrite fixup",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.RecordsCaptured,
		m.RecordsRejected,
		m.RecordsTruncated,
		m.RecordsDrained,
		m.DrainsTotal,
		m.ResetsTotal,
		m.RedactionsTotal,
		m.BufferUsedBytes,
		m.BufferCapacity,
		m.CaptureDuration,
	)
	return m
}
