package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for fit runs.
type Metrics struct {
	RecordsLoaded   prometheus.Counter
	RecordsSkipped  prometheus.Counter
	PipelineRunning prometheus.Gauge
	RunDuration     prometheus.Histogram

	// Estimator metrics.
	CentersResolved    *prometheus.CounterVec // labels: radius
	CentersExhausted   prometheus.Gauge
	RadiusPassDuration prometheus.Histogram

	// Sink metrics.
	RowsPublished *prometheus.CounterVec // labels: sink={table,kafka,memory}
	PublishErrors *prometheus.CounterVec // labels: sink
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsLoaded,
		m.RecordsSkipped,
		m.PipelineRunning,
		m.RunDuration,
		m.CentersResolved,
		m.CentersExhausted,
		m.RadiusPassDuration,
		m.RowsPublished,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "laf",
			Name:      "records_loaded_total",
			Help:      "Moment records read from the upstream table.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "laf",
			Name:      "records_skipped_total",
			Help:      "Moment records dropped for non-finite coordinates or target value.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "laf",
			Name:      "pipeline_running",
			Help:      "1 while a fit run is in progress, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "laf",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete load-fit-publish run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CentersResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "laf",
			Name:      "centers_resolved_total",
			Help:      "Grid centers resolved, by the radius that resolved them.",
		}, []string{"radius"}),
		CentersExhausted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "laf",
			Name:      "centers_exhausted",
			Help:      "Grid centers left without an estimate by the last run.",
		}),
		RadiusPassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "laf",
			Name:      "radius_pass_duration_seconds",
			Help:      "Duration of one radius pass over the active grid centers.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		RowsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "laf",
			Name:      "rows_published_total",
			Help:      "Fit rows written, by sink.",
		}, []string{"sink"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "laf",
			Name:      "publish_errors_total",
			Help:      "Failed sink writes, by sink.",
		}, []string{"sink"}),
	}
}
