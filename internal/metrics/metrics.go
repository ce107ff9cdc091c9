// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestsTotal    *prometheus.CounterVec
	apiRetriesTotal     prometheus.Counter
	rowsProcessedTotal  prometheus.Counter
	imagesStoredTotal   prometheus.Counter
	shardsSweptTotal    *prometheus.CounterVec
	requestDurationSecs prometheus.Histogram

	once sync.Once
)

// Init registers the collectors on the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		apiRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_api_requests_total",
				Help: "Total API requests issued, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		apiRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_api_retries_total",
				Help: "Total request attempts beyond the first.",
			},
		)

		rowsProcessedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_rows_processed_total",
				Help: "Total raw search rows fed to the extractor.",
			},
		)

		imagesStoredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_images_stored_total",
				Help: "Total normalized image records accepted by the store.",
			},
		)

		shardsSweptTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_shards_swept_total",
				Help: "Shards finished, labeled by completed or abandoned.",
			},
			[]string{"result"},
		)

		requestDurationSecs = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harvester_api_request_duration_seconds",
				Help:    "Latency of individual API request attempts.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		)
	})
}

// RequestDone counts one logical request with the given outcome
// ("success", "failure").
func RequestDone(outcome string) {
	if apiRequestsTotal != nil {
		apiRequestsTotal.WithLabelValues(outcome).Inc()
	}
}

// RetryAttempt counts one retry beyond the initial attempt.
func RetryAttempt() {
	if apiRetriesTotal != nil {
		apiRetriesTotal.Inc()
	}
}

// ObserveRequestDuration records the latency of a single attempt.
func ObserveRequestDuration(seconds float64) {
	if requestDurationSecs != nil {
		requestDurationSecs.Observe(seconds)
	}
}

// RowsProcessed adds to the raw row counter.
func RowsProcessed(n int) {
	if rowsProcessedTotal != nil && n > 0 {
		rowsProcessedTotal.Add(float64(n))
	}
}

// ImageStored counts one accepted record.
func ImageStored() {
	if imagesStoredTotal != nil {
		imagesStoredTotal.Inc()
	}
}

// ShardDone counts a finished shard ("completed" or "abandoned").
func ShardDone(result string) {
	if shardsSweptTotal != nil {
		shardsSweptTotal.WithLabelValues(result).Inc()
	}
}
