package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BatchesIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insights_batches_ingested_total",
		Help: "Total ingestion batches processed",
	})
	RecordsIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "insights_records_ingested_total",
		Help: "Total records canonicalized and written",
	})
	RecordsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_records_skipped_total",
		Help: "Total records skipped during ingestion",
	}, []string{"reason"})
	UpsertErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "insights_upsert_errors_total",
		Help: "Total store-level upsert failures",
	}, []string{"store"})
	IngestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "insights_ingest_duration_seconds",
		Help:    "Batch ingestion duration seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(BatchesIngested, RecordsIngested, RecordsSkipped, UpsertErrors, IngestDuration)
}

// Handler returns the promhttp handler for mounting on an HTTP router
func Handler() http.Handler { return promhttp.Handler() }

// ObserveIngestDuration records a batch duration
func ObserveIngestDuration(start time.Time) {
	IngestDuration.Observe(time.Since(start).Seconds())
}
