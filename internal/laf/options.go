package laf

import (
	"log/slog"
	"runtime"

	"github.com/couchcryptid/dsd-laf/internal/observability"
)

// Option configures an Estimator.
type Option func(*Estimator)

// WithWorkers sets how many goroutines evaluate centers within one radius
// pass. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(e *Estimator) {
		if n >= 1 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger for per-pass progress.
func WithLogger(l *slog.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records pass durations and resolution counts.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Estimator) { e.metrics = m }
}

func defaultWorkers() int { return runtime.NumCPU() }
