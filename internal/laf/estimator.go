// Package laf implements the local adaptive fit: a multi-radius
// neighborhood estimator of a target moment over the (mu_r, gamma_r) plane.
//
// Radii are tried in the order given. At each radius every still-active
// grid center gathers the observations within that radius; centers with at
// least occupancy neighbors are resolved with the quantiles of their
// neighbors' values and are never evaluated again. Centers still active
// after the last radius are exhausted and produce no record. Dense regions
// therefore resolve at small radii (little smoothing) and sparse regions
// fall through to larger ones.
//
// The caller supplies radii in ascending order; the estimator does not sort
// them.
package laf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/couchcryptid/dsd-laf/internal/domain"
	"github.com/couchcryptid/dsd-laf/internal/observability"
	"github.com/couchcryptid/dsd-laf/internal/spatial"
	"golang.org/x/sync/errgroup"
)

// Params are the per-run inputs of the estimator besides the grid.
type Params struct {
	Radii     []float64
	Occupancy int
}

// Validate rejects a non-positive occupancy or a radius that is not a
// positive finite number.
// Radius order is not checked.
func (p Params) Validate() error {
	if p.Occupancy <= 0 {
		return domain.ConfigErrorf("occupancy", "must be a positive integer, got %d", p.Occupancy)
	}
	for i, r := range p.Radii {
		if !(r > 0) || math.IsInf(r, 1) {
			return domain.ConfigErrorf("radius", "radius %d must be positive and finite, got %g", i, r)
		}
	}
	return nil
}

// Ascending reports whether the radii are strictly increasing.
func (p Params) Ascending() bool {
	for i := 1; i < len(p.Radii); i++ {
		if p.Radii[i] <= p.Radii[i-1] {
			return false
		}
	}
	return true
}

// PassStats summarizes one radius pass.
type PassStats struct {
	Radius   float64
	Active   int // centers evaluated
	Resolved int
	Duration time.Duration
}

// Result is the outcome of one fit.
type Result struct {
	// Records holds one FitRecord per resolved center, in pass order and
	// grid order within a pass.
	Records []domain.FitRecord
	// Centers is a copy of the input grid with final statuses.
	Centers   []domain.GridCenter
	Passes    []PassStats
	Exhausted int
}

// Estimator runs the local adaptive fit over one point cloud.
type Estimator struct {
	index   spatial.Index
	values  []float64
	workers int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEstimator binds observations to an index built over their
// (MuR, GammaR) positions, in the same order.
func NewEstimator(obs []domain.Observation, index spatial.Index, opts ...Option) (*Estimator, error) {
	if index.Len() != len(obs) {
		return nil, fmt.Errorf("index holds %d points, have %d observations", index.Len(), len(obs))
	}
	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.ValueR
	}
	e := &Estimator{
		index:   index,
		values:  values,
		workers: defaultWorkers(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Points projects observations onto the plane, for building an index.
func Points(obs []domain.Observation) []spatial.Point {
	points := make([]spatial.Point, len(obs))
	for i, o := range obs {
		points[i] = spatial.Point{X: o.MuR, Y: o.GammaR}
	}
	return points
}

// outcome is the evaluation of one center at one radius.
type outcome struct {
	neighbors int
	summary   Summary
}

// Fit evaluates grid against the radius sequence. The grid is not modified.
// Context cancellation is honored between radius passes and between centers
// within a pass; a canceled fit returns ctx.Err() and no result.
func (e *Estimator) Fit(ctx context.Context, grid []domain.GridCenter, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if !p.Ascending() {
		e.logger.Warn("radius sequence is not ascending; centers may resolve at a larger radius than necessary",
			"radii", p.Radii)
	}

	res := Result{Centers: make([]domain.GridCenter, len(grid))}
	copy(res.Centers, grid)

	active := make([]int, 0, len(grid))
	for i, c := range res.Centers {
		if c.Status == domain.CenterActive {
			active = append(active, i)
		}
	}

	for _, radius := range p.Radii {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if len(active) == 0 {
			break
		}

		start := time.Now()
		outcomes, err := e.evaluate(ctx, res.Centers, active, radius, p.Occupancy)
		if err != nil {
			return Result{}, err
		}

		// Barrier passed: apply transitions sequentially in grid order.
		remaining := active[:0:0]
		resolved := 0
		for k, ci := range active {
			o := outcomes[k]
			if o.neighbors < p.Occupancy {
				remaining = append(remaining, ci)
				continue
			}
			c := &res.Centers[ci]
			c.Status = domain.CenterResolved
			res.Records = append(res.Records, domain.FitRecord{
				MuR:       c.MuR,
				GammaR:    c.GammaR,
				Radius:    radius,
				MedianR:   o.summary.Median,
				Q1R:       o.summary.Q1,
				Q3R:       o.summary.Q3,
				P5R:       o.summary.P5,
				P95R:      o.summary.P95,
				Neighbors: o.neighbors,
			})
			resolved++
		}

		stats := PassStats{Radius: radius, Active: len(active), Resolved: resolved, Duration: time.Since(start)}
		res.Passes = append(res.Passes, stats)
		e.observePass(stats)
		active = remaining
	}

	for _, ci := range active {
		res.Centers[ci].Status = domain.CenterExhausted
	}
	res.Exhausted = len(active)
	if e.metrics != nil {
		e.metrics.CentersExhausted.Set(float64(res.Exhausted))
	}

	e.logger.Info("fit complete",
		"centers", len(grid),
		"resolved", len(res.Records),
		"exhausted", res.Exhausted,
		"occupancy", p.Occupancy,
	)
	return res, nil
}

// evaluate queries every active center at radius and summarizes those with
// at least occupancy neighbors. Centers are split into contiguous chunks, one
// goroutine per chunk; each goroutine writes only its own slots of the
// returned slice. A canceled ctx stops the chunks early.
func (e *Estimator) evaluate(ctx context.Context, centers []domain.GridCenter, active []int, radius float64, occupancy int) ([]outcome, error) {
	outcomes := make([]outcome, len(active))

	workers := min(e.workers, len(active))
	chunk := (len(active) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(active); lo += chunk {
		hi := min(lo+chunk, len(active))
		g.Go(func() error {
			values := make([]float64, 0, 64)
			for k := lo; k < hi; k++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				c := centers[active[k]]
				nb := e.index.WithinRadius(spatial.Point{X: c.MuR, Y: c.GammaR}, radius)
				outcomes[k].neighbors = len(nb)
				if len(nb) < occupancy {
					continue
				}
				values = values[:0]
				for _, idx := range nb {
					values = append(values, e.values[idx])
				}
				outcomes[k].summary = Summarize(values)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (e *Estimator) observePass(s PassStats) {
	e.logger.Info("processing radius",
		"radius", s.Radius,
		"active", s.Active,
		"resolved", s.Resolved,
		"duration", s.Duration,
	)
	if e.metrics == nil {
		return
	}
	e.metrics.RadiusPassDuration.Observe(s.Duration.Seconds())
	e.metrics.CentersResolved.WithLabelValues(strconv.FormatFloat(s.Radius, 'g', -1, 64)).Add(float64(s.Resolved))
}
