// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	RowsScraped      *prometheus.CounterVec
	RowsInserted     *prometheus.CounterVec
	RowsSkipped      *prometheus.CounterVec
	UnknownDateRows  *prometheus.CounterVec
	StateTransitions *prometheus.CounterVec

	// Fan-out metrics
	FanOutErrors      *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec

	// Embedding metrics
	EmbeddingsUpserted prometheus.Counter
	EmbeddingUpserts   prometheus.Counter
	EmbeddingLatency   prometheus.Histogram

	// Query metrics
	NamespaceResolutions *prometheus.CounterVec

	// Scrape metrics
	ScrapeLatency *prometheus.HistogramVec
	ScrapeErrors  *prometheus.CounterVec

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulRun *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "insider_pipeline"
	}

	return &Metrics{
		RowsScraped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_scraped_total",
			Help:      "Total number of rows fetched from exchange pages",
		}, []string{"source"}),
		RowsInserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_inserted_total",
			Help:      "Total number of records inserted by track",
		}, []string{"source", "track"}),
		RowsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_skipped_total",
			Help:      "Total number of rows skipped by reason",
		}, []string{"source", "reason"}),
		UnknownDateRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "unknown_date_records_total",
			Help:      "Total number of new records whose date could not be resolved",
		}, []string{"source"}),
		StateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "state_transitions_total",
			Help:      "Total number of ingestion state transitions",
		}, []string{"source", "state"}),

		FanOutErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "errors_total",
			Help:      "Total number of downstream errors after persistence",
		}, []string{"stage"}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total number of notifications by channel and status",
		}, []string{"channel", "status"}),

		EmbeddingsUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "vectors_upserted_total",
			Help:      "Total number of vectors written to the index",
		}),
		EmbeddingUpserts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "upserts_total",
			Help:      "Total number of upsert calls made to the index",
		}),
		EmbeddingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "embed_latency_seconds",
			Help:      "Embedding request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		NamespaceResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "namespace_resolutions_total",
			Help:      "Namespace resolutions by outcome (explicit, fallback, none)",
		}, []string{"outcome"}),

		ScrapeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scrape",
			Name:      "request_latency_seconds",
			Help:      "Exchange page request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		ScrapeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scrape",
			Name:      "errors_total",
			Help:      "Total number of failed page fetches",
		}, []string{"source"}),

		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "total",
			Help:      "Total number of ingestion runs by job and status",
		}, []string{"job", "status"}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Ingestion run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"job"}),

		LastSuccessfulRun: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful run by job",
		}, []string{"job"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRowsScraped adds n scraped rows for source.
func RecordRowsScraped(source string, n int) {
	DefaultMetrics.RowsScraped.WithLabelValues(source).Add(float64(n))
}

// RecordInserted records one inserted record on track.
func RecordInserted(source, track string) {
	DefaultMetrics.RowsInserted.WithLabelValues(source, track).Inc()
}

// RecordSkipped records one skipped row.
func RecordSkipped(source, reason string) {
	DefaultMetrics.RowsSkipped.WithLabelValues(source, reason).Inc()
}

// RecordUnknownDate records a new record that has no resolvable date.
func RecordUnknownDate(source string) {
	DefaultMetrics.UnknownDateRows.WithLabelValues(source).Inc()
}

// RecordStateTransition records an ingestion state change.
func RecordStateTransition(source, state string) {
	DefaultMetrics.StateTransitions.WithLabelValues(source, state).Inc()
}

// RecordFanOutError records a notify or embed failure.
func RecordFanOutError(stage string) {
	DefaultMetrics.FanOutErrors.WithLabelValues(stage).Inc()
}

// RecordNotification records a channel delivery attempt.
func RecordNotification(channel string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.NotificationsSent.WithLabelValues(channel, status).Inc()
}

// RecordEmbeddingUpsert records one upsert call of n vectors.
func RecordEmbeddingUpsert(n int) {
	DefaultMetrics.EmbeddingUpserts.Inc()
	DefaultMetrics.EmbeddingsUpserted.Add(float64(n))
}

// RecordEmbeddingLatency records one embedding request.
func RecordEmbeddingLatency(seconds float64) {
	DefaultMetrics.EmbeddingLatency.Observe(seconds)
}

// RecordNamespaceResolution records a resolver outcome.
func RecordNamespaceResolution(outcome string) {
	DefaultMetrics.NamespaceResolutions.WithLabelValues(outcome).Inc()
}

// RecordScrape records a page fetch.
func RecordScrape(source string, seconds float64, err error) {
	DefaultMetrics.ScrapeLatency.WithLabelValues(source).Observe(seconds)
	if err != nil {
		DefaultMetrics.ScrapeErrors.WithLabelValues(source).Inc()
	}
}

// RecordRun records a finished run.
func RecordRun(job, status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(job, status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(job).Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	}
}
