// Package observability exposes Prometheus metrics for the analysis
// pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	activitiesAnalyzed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runcoach",
		Subsystem: "analysis",
		Name:      "activities_analyzed_total",
		Help:      "Activities processed by the analysis pipeline, by primary signal.",
	}, []string{"signal"})

	analysisFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runcoach",
		Subsystem: "analysis",
		Name:      "failures_total",
		Help:      "Activities the pipeline could not analyze, by reason.",
	}, []string{"reason"})

	blocksPerActivity = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "runcoach",
		Subsystem: "analysis",
		Name:      "blocks_per_activity",
		Help:      "Distribution of block counts per analyzed activity.",
		Buckets:   []float64{1, 2, 4, 8, 12, 16, 24, 32},
	})

	loadUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runcoach",
		Subsystem: "training_load",
		Name:      "updates_total",
		Help:      "Successful training-load state updates.",
	})

	outOfOrderRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runcoach",
		Subsystem: "training_load",
		Name:      "out_of_order_rejections_total",
		Help:      "Load updates rejected because the activity predates the last update.",
	})
)

func init() {
	prometheus.MustRegister(activitiesAnalyzed, analysisFailures, blocksPerActivity, loadUpdates, outOfOrderRejections)
}

// RecordActivityAnalyzed counts one successful analysis.
func RecordActivityAnalyzed(signal string, blocks int) {
	activitiesAnalyzed.WithLabelValues(signal).Inc()
	blocksPerActivity.Observe(float64(blocks))
}

// RecordAnalysisFailure counts one rejected activity.
func RecordAnalysisFailure(reason string) {
	analysisFailures.WithLabelValues(reason).Inc()
}

// RecordLoadUpdate counts one applied training-load update.
func RecordLoadUpdate() {
	loadUpdates.Inc()
}

// RecordOutOfOrderRejection counts one rejected out-of-order update.
func RecordOutOfOrderRejection() {
	outOfOrderRejections.Inc()
}
