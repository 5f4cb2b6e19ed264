// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	RatesFetched         prometheus.Counter
	ObservationsAccepted prometheus.Counter
	InvalidRates         *prometheus.CounterVec
	DuplicatesDropped    prometheus.Counter
	ObservationsStored   prometheus.Counter
	FetchLatency         prometheus.Histogram

	// Gold metrics
	FeatureRowsPublished prometheus.Gauge
	MetadataGaps         prometheus.Counter
	SnapshotWrites       *prometheus.CounterVec

	// Narration metrics
	InsightsTotal     *prometheus.CounterVec
	GenerationLatency *prometheus.HistogramVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "fx_trend_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		RatesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rates_fetched_total",
			Help:      "Total number of rates present in fetched payloads",
		}),
		ObservationsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_accepted_total",
			Help:      "Total number of rates converted into observations",
		}),
		InvalidRates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "invalid_rates_total",
			Help:      "Total number of rates rejected by reason",
		}, []string{"reason"}),
		DuplicatesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duplicates_dropped_total",
			Help:      "Total number of observations dropped as duplicates",
		}),
		ObservationsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_stored_total",
			Help:      "Total number of new observations stored",
		}),
		FetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "fetch_latency_seconds",
			Help:      "Rate fetch latency in seconds, retries included",
			Buckets:   prometheus.DefBuckets,
		}),

		// Gold metrics
		FeatureRowsPublished: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gold",
			Name:      "feature_rows_published",
			Help:      "Number of rows in the last published gold table",
		}),
		MetadataGaps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gold",
			Name:      "metadata_gaps_total",
			Help:      "Total number of distinct currencies without metadata, per run",
		}),
		SnapshotWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gold",
			Name:      "snapshot_writes_total",
			Help:      "Total number of snapshot cache writes by status",
		}, []string{"status"}),

		// Narration metrics
		InsightsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "narration",
			Name:      "insights_total",
			Help:      "Total number of narration attempts by result",
		}, []string{"result"}),
		GenerationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "narration",
			Name:      "generation_latency_seconds",
			Help:      "Text generation latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"generator"}),

		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Health metrics
		LastSuccessfulPipeline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns an HTTP handler exposing the metrics of g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordIngest records the counters of one normalization and merge pass.
func (m *Metrics) RecordIngest(fetched, accepted, duplicates, stored int, invalidReasons []string) {
	m.RatesFetched.Add(float64(fetched))
	m.ObservationsAccepted.Add(float64(accepted))
	m.DuplicatesDropped.Add(float64(duplicates))
	m.ObservationsStored.Add(float64(stored))
	for _, reason := range invalidReasons {
		m.InvalidRates.WithLabelValues(reason).Inc()
	}
}

// RecordMetadataGaps adds the number of distinct currencies missing metadata.
func (m *Metrics) RecordMetadataGaps(n int) {
	m.MetadataGaps.Add(float64(n))
}

// RecordSnapshotWrite records a snapshot cache write.
func (m *Metrics) RecordSnapshotWrite(err error) {
	m.SnapshotWrites.WithLabelValues(status(err)).Inc()
}

// RecordInsight records a narration attempt: created, exists or error.
func (m *Metrics) RecordInsight(result string) {
	m.InsightsTotal.WithLabelValues(result).Inc()
}

// RecordGeneration records text generation latency.
func (m *Metrics) RecordGeneration(generator string, seconds float64) {
	m.GenerationLatency.WithLabelValues(generator).Observe(seconds)
}

// RecordPipelineRun records a pipeline run.
func (m *Metrics) RecordPipelineRun(phase, status string, durationSeconds float64) {
	m.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	m.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
