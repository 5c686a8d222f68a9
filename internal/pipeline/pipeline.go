package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/dsd-laf/internal/domain"
	"github.com/couchcryptid/dsd-laf/internal/laf"
	"github.com/couchcryptid/dsd-laf/internal/observability"
	"github.com/couchcryptid/dsd-laf/internal/spatial"
	"github.com/google/uuid"
)

// Inputs are the tables one fit reads.
type Inputs struct {
	Records []domain.MomentRecord
	Renorm  *domain.RenormTable
	Radii   []float64
	// Catalog is optional; when set the site must resolve in it.
	Catalog *domain.Catalog
}

// Source loads the inputs of a fit.
type Source interface {
	Load(ctx context.Context) (Inputs, error)
}

// Sink receives the fit rows of a completed run.
type Sink interface {
	Name() string
	Publish(ctx context.Context, m domain.Moment, rows []domain.FitRow) error
	Close() error
}

// Params select what to fit and how.
type Params struct {
	RenormType     string
	Target         domain.Moment
	Site           string
	Representation domain.Representation
	Occupancy      int
	Grid           domain.GridSpec
	Index          spatial.Kind
	Workers        int
}

// Run is the outcome of one completed fit.
type Run struct {
	ID        string
	Site      domain.Site
	Rows      []domain.FitRow
	Loaded    int
	Skipped   int
	Exhausted int
	Passes    []laf.PassStats
	StartedAt time.Time
	Duration  time.Duration
}

// Pipeline orchestrates load, renormalize, index, estimate, assemble and
// publish for one fit.
type Pipeline struct {
	source  Source
	sinks   []Sink
	params  Params
	logger  *slog.Logger
	metrics *observability.Metrics

	ready atomic.Bool
	mu    sync.RWMutex
	last  *Run
}

// New creates a Pipeline with the given stages and observability.
func New(src Source, sinks []Sink, params Params, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:  src,
		sinks:   sinks,
		params:  params,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a fit has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("fit has not completed yet")
	}
	return nil
}

// LastRun returns the most recent completed run, or nil.
func (p *Pipeline) LastRun() *Run {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// FitRows returns the rows of the most recent completed run.
func (p *Pipeline) FitRows() []domain.FitRow {
	if r := p.LastRun(); r != nil {
		return r.Rows
	}
	return nil
}

// Run executes one fit and publishes its rows to every sink. A sink failure
// does not stop the other sinks; the failures are joined in the returned
// error and the run is still recorded.
func (p *Pipeline) Run(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString(), StartedAt: time.Now()}
	logger := p.logger.With("run_id", run.ID, "site", p.params.Site, "moment", p.params.Target)

	logger.Info("fit started",
		"renorm_type", p.params.RenormType,
		"representation", p.params.Representation,
		"occupancy", p.params.Occupancy,
		"index", p.params.Index,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	in, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	run.Loaded = len(in.Records)
	p.metrics.RecordsLoaded.Add(float64(run.Loaded))

	prep, err := transform(in, p.params)
	if err != nil {
		return nil, err
	}
	run.Site = prep.site
	run.Skipped = prep.skipped
	p.metrics.RecordsSkipped.Add(float64(prep.skipped))
	if prep.skipped > 0 {
		logger.Warn("skipped records with non-finite values", "skipped", prep.skipped, "loaded", run.Loaded)
	}
	if prep.site.Instrument != "" {
		logger.Info("site resolved",
			"instrument", prep.site.Instrument,
			"area_instrument", prep.site.AreaInstrument,
			"time_resolution", prep.site.TimeResolution,
		)
	}

	idx, err := spatial.Build(p.params.Index, laf.Points(prep.observations))
	if err != nil {
		return nil, domain.ConfigErrorf("index", "%v", err)
	}
	est, err := laf.NewEstimator(prep.observations, idx,
		laf.WithWorkers(p.params.Workers),
		laf.WithLogger(logger),
		laf.WithMetrics(p.metrics),
	)
	if err != nil {
		return nil, err
	}
	grid, err := laf.NewGrid(p.params.Grid)
	if err != nil {
		return nil, err
	}

	res, err := est.Fit(ctx, grid, laf.Params{Radii: in.Radii, Occupancy: p.params.Occupancy})
	if err != nil {
		return nil, err
	}
	run.Exhausted = res.Exhausted
	run.Passes = res.Passes

	run.Rows = domain.AssembleFitRows(res.Records, prep.renorm, p.params.Site)
	for i := range run.Rows {
		run.Rows[i].RunID = run.ID
		run.Rows[i].Instrument = prep.site.Instrument
	}

	pubErr := p.publish(ctx, logger, run.Rows)

	run.Duration = time.Since(run.StartedAt)
	p.metrics.RunDuration.Observe(run.Duration.Seconds())
	p.mu.Lock()
	p.last = run
	p.mu.Unlock()
	p.ready.Store(true)

	logger.Info("fit finished",
		"rows", len(run.Rows),
		"exhausted", run.Exhausted,
		"duration", run.Duration,
	)
	return run, pubErr
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, rows []domain.FitRow) error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Publish(ctx, p.params.Target, rows); err != nil {
			logger.Error("publish failed", "sink", s.Name(), "error", err)
			p.metrics.PublishErrors.WithLabelValues(s.Name()).Inc()
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
			continue
		}
		p.metrics.RowsPublished.WithLabelValues(s.Name()).Add(float64(len(rows)))
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (p *Pipeline) Close() error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
