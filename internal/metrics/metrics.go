// Package metrics exposes Prometheus instrumentation for the load pipeline.
//
// Collectors are package-level and registered once at init, with label
// cardinality kept deliberately small:
//
//   - outcome: inserted / already_present / malformed / failed
//
// All collectors are safe for concurrent use by the worker pool.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// recordsTotal counts processed records by terminal outcome.
	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_records_total",
			Help: "Total number of processed archive records.",
		},
		[]string{"outcome"},
	)

	// recordDuration records per-record ingestion latency in seconds.
	// We intentionally omit outcome to keep histogram cardinality lower.
	recordDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archive_record_duration_seconds",
			Help:    "Duration of single-record ingestion in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// linesRead counts record lines handed to the pipeline, before decoding.
	linesRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "archive_lines_read_total",
			Help: "Total number of record lines read from archives.",
		},
	)

	// workersBusy gauges the number of workers currently writing a record.
	workersBusy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "archive_workers_busy",
			Help: "Number of workers currently ingesting a record.",
		},
	)
)

func init() {
	prometheus.MustRegister(recordsTotal, recordDuration, linesRead, workersBusy)
}

// ObserveRecord records one terminal outcome and how long the record took.
func ObserveRecord(outcome string, d time.Duration) {
	recordsTotal.WithLabelValues(outcome).Inc()
	recordDuration.Observe(d.Seconds())
}

// LineRead counts one line handed to the pipeline.
func LineRead() {
	linesRead.Inc()
}

// WorkerBusy marks a worker as writing; the returned func marks it idle.
func WorkerBusy() func() {
	workersBusy.Inc()
	return workersBusy.Dec
}
