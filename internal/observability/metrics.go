package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Pipeline metrics
	BytesRead        prometheus.Counter
	BuffersPublished prometheus.Counter
	RecordsProcessed prometheus.Counter
	ReaderWait       prometheus.Histogram
	WorkerWait       prometheus.Histogram
	RunDuration      prometheus.Histogram
	Stations         prometheus.Gauge
	TableCollisions  prometheus.Gauge

	// Export metrics
	ResultsWritten       *prometheus.CounterVec
	ResultSize           *prometheus.HistogramVec
	StorageWriteDuration *prometheus.HistogramVec
	StorageErrors        *prometheus.CounterVec
	ResultsPublished     *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	waitBuckets := prometheus.ExponentialBuckets(0.00001, 4, 10) // 10µs to ~2.6s

	return &Metrics{
		// Pipeline metrics
		BytesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "brc_bytes_read_total",
			Help: "Total number of input bytes read",
		}),
		BuffersPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "brc_buffers_published_total",
			Help: "Total number of filled buffers handed to workers",
		}),
		RecordsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "brc_records_processed_total",
			Help: "Total number of records aggregated",
		}),
		ReaderWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "brc_reader_wait_seconds",
			Help:    "Time the reader spent waiting for a free buffer",
			Buckets: waitBuckets,
		}),
		WorkerWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "brc_worker_wait_seconds",
			Help:    "Time workers spent waiting for a filled buffer",
			Buckets: waitBuckets,
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "brc_run_duration_seconds",
			Help:    "Duration of complete aggregation runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}),
		Stations: factory.NewGauge(prometheus.GaugeOpts{
			Name: "brc_stations",
			Help: "Number of distinct stations in the last run",
		}),
		TableCollisions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "brc_table_collisions",
			Help: "Keys placed outside their home slot in the merged table",
		}),

		// Export metrics
		ResultsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "results_written_total",
				Help: "Total number of result files written",
			},
			[]string{"backend", "format", "status"},
		),
		ResultSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "result_size_bytes",
				Help:    "Size of result files written",
				Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to 2MB
			},
			[]string{"backend", "format"},
		),
		StorageWriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_write_duration_seconds",
				Help:    "Duration of complete storage write operations including encoding",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_errors_total",
				Help: "Total number of storage errors",
			},
			[]string{"backend", "error_type"},
		),
		ResultsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "results_published_total",
				Help: "Total number of station results published to Kafka",
			},
			[]string{"topic", "status"},
		),
	}
}

// RecordBytesRead adds n to the bytes read counter.
func (m *Metrics) RecordBytesRead(n int) {
	m.BytesRead.Add(float64(n))
}

// RecordBufferPublished counts one published buffer.
func (m *Metrics) RecordBufferPublished() {
	m.BuffersPublished.Inc()
}

// RecordRecordsProcessed adds n to the records counter.
func (m *Metrics) RecordRecordsProcessed(n int) {
	m.RecordsProcessed.Add(float64(n))
}

// RecordReaderWait observes time blocked on the free list.
func (m *Metrics) RecordReaderWait(d time.Duration) {
	m.ReaderWait.Observe(d.Seconds())
}

// RecordWorkerWait observes time blocked on the filled queue.
func (m *Metrics) RecordWorkerWait(d time.Duration) {
	m.WorkerWait.Observe(d.Seconds())
}

// RecordRun records the outcome of a finished run.
func (m *Metrics) RecordRun(d time.Duration, stations, collisions int) {
	m.RunDuration.Observe(d.Seconds())
	m.Stations.Set(float64(stations))
	m.TableCollisions.Set(float64(collisions))
}

// IncResultsWritten increments result files written counter.
func (m *Metrics) IncResultsWritten(backend, format, status string) {
	m.ResultsWritten.WithLabelValues(backend, format, status).Inc()
}

// ObserveResultSize observes result file size.
func (m *Metrics) ObserveResultSize(backend, format string, size float64) {
	m.ResultSize.WithLabelValues(backend, format).Observe(size)
}

// ObserveStorageWriteDuration observes storage write duration.
func (m *Metrics) ObserveStorageWriteDuration(backend string, duration float64) {
	m.StorageWriteDuration.WithLabelValues(backend).Observe(duration)
}

// IncStorageErrors increments storage errors counter.
func (m *Metrics) IncStorageErrors(backend string, operation string) {
	m.StorageErrors.WithLabelValues(backend, operation).Inc()
}

// IncResultsPublished increments published results counter.
func (m *Metrics) IncResultsPublished(topic, status string) {
	m.ResultsPublished.WithLabelValues(topic, status).Inc()
}
