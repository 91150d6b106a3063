// Package metrics exposes Prometheus instruments for the enrichment pipeline.
//
// Usage:
//
//	RecordSourceFetch("video", SourceContributed, 420*time.Millisecond)
//	RecordPipelineRun("created", 55, 3*time.Second)
//	RecordLinkProbe("invalid")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Source fetch outcomes.
const (
	SourceContributed = "contributed"
	SourceEmpty       = "empty"
	SourceTimeout     = "timeout"
	SourcePanic       = "panic"
)

var (
	// SourceFetchesTotal counts adapter invocations by source and outcome.
	SourceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_source_fetches_total",
			Help: "Total number of source adapter fetches",
		},
		[]string{"source", "outcome"},
	)

	// SourceFetchDuration tracks adapter latency.
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enrich_source_fetch_duration_seconds",
			Help:    "Duration of source adapter fetches in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"source"},
	)

	// PipelineRunsTotal counts single-profile runs by resulting action.
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_pipeline_runs_total",
			Help: "Total number of profile pipeline runs",
		},
		[]string{"action"},
	)

	// PipelineRunDuration tracks end-to-end single-profile latency.
	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrich_pipeline_run_duration_seconds",
			Help:    "Duration of profile pipeline runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		},
	)

	// ConfidenceScore records the confidence of every aggregated candidate.
	ConfidenceScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enrich_confidence_score",
			Help:    "Confidence score of aggregated candidates",
			Buckets: prometheus.LinearBuckets(10, 10, 9),
		},
	)

	// LinkProbesTotal counts link probe classifications.
	LinkProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_link_probes_total",
			Help: "Total number of external link probes by status",
		},
		[]string{"status"},
	)

	// FlagsRaisedTotal counts validation flags by type.
	FlagsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_flags_raised_total",
			Help: "Total number of profile flags raised by validation",
		},
		[]string{"type", "severity"},
	)

	// RefreshDueProfiles reports how many profiles the last refresh sweep found due.
	RefreshDueProfiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "enrich_refresh_due_profiles",
			Help: "Number of profiles due for refresh in the last sweep",
		},
	)
)

func RecordSourceFetch(source, outcome string, d time.Duration) {
	SourceFetchesTotal.WithLabelValues(source, outcome).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

func RecordPipelineRun(action string, score int, d time.Duration) {
	PipelineRunsTotal.WithLabelValues(action).Inc()
	PipelineRunDuration.Observe(d.Seconds())
	ConfidenceScore.Observe(float64(score))
}

func RecordLinkProbe(status string) {
	LinkProbesTotal.WithLabelValues(status).Inc()
}

func RecordFlag(flagType, severity string) {
	FlagsRaisedTotal.WithLabelValues(flagType, severity).Inc()
}

func RecordRefreshDue(count int) {
	RefreshDueProfiles.Set(float64(count))
}
