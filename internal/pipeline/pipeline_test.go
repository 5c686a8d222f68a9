package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/couchcryptid/dsd-laf/internal/domain"
	"github.com/couchcryptid/dsd-laf/internal/observability"
	"github.com/couchcryptid/dsd-laf/internal/pipeline"
	"github.com/couchcryptid/dsd-laf/internal/spatial"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSource struct {
	in  pipeline.Inputs
	err error
}

func (m *mockSource) Load(_ context.Context) (pipeline.Inputs, error) {
	return m.in, m.err
}

type mockSink struct {
	name   string
	err    error
	mu     sync.Mutex
	rows   []domain.FitRow
	moment domain.Moment
	closed bool
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Publish(_ context.Context, mo domain.Moment, rows []domain.FitRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.moment = mo
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *mockSink) Close() error {
	m.closed = true
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use unregistered collectors to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testRenormTable() *domain.RenormTable {
	return domain.NewRenormTable([]domain.RenormEntry{
		{RenormType: "flux_std", Moment: domain.MomentMu, XMin: 0, XMax: 10},
		{RenormType: "flux_std", Moment: domain.MomentGamma, XMin: -1, XMax: 3},
		{RenormType: "flux_std", Moment: domain.MomentSigma, XMin: 0, XMax: 2},
	})
}

// clusterInputs places five records around (mu, gamma) = (5, 1), which is
// (0.5, 0.5) in the canonical plane, plus one record with a NaN target.
func clusterInputs() pipeline.Inputs {
	return pipeline.Inputs{
		Records: []domain.MomentRecord{
			{Mu: 5.0, Gamma: 1.0, Sigma: 0.2},
			{Mu: 5.1, Gamma: 1.0, Sigma: 0.4},
			{Mu: 4.9, Gamma: 1.0, Sigma: 0.6},
			{Mu: 5.0, Gamma: 1.2, Sigma: 0.8},
			{Mu: 5.0, Gamma: 0.8, Sigma: 1.0},
			{Mu: 5.0, Gamma: 1.0, Sigma: math.NaN()},
		},
		Renorm: testRenormTable(),
		Radii:  []float64{0.02, 0.06},
	}
}

func testParams() pipeline.Params {
	return pipeline.Params{
		RenormType:     "flux_std",
		Target:         domain.MomentSigma,
		Site:           "MAN",
		Representation: domain.RepresentationFlux,
		Occupancy:      5,
		Grid:           domain.GridSpec{Min: 0.45, Max: 0.56, Step: 0.05},
		Index:          spatial.KindKDTree,
		Workers:        2,
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClock())
	t.Cleanup(func() { domain.SetClock(nil) })

	sink := &mockSink{name: "memory"}
	metrics := newTestMetrics()
	p := pipeline.New(&mockSource{in: clusterInputs()}, []pipeline.Sink{sink}, testParams(), discardLogger(), metrics)

	require.Error(t, p.CheckReadiness(context.Background()))

	run, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, run.Loaded)
	assert.Equal(t, 1, run.Skipped)
	require.Len(t, run.Rows, 1, "only the (0.5, 0.5) center sees all five records")

	row := run.Rows[0]
	assert.Equal(t, 0.5, row.MuR)
	assert.Equal(t, 0.5, row.GammaR)
	assert.Equal(t, 0.06, row.Radius)
	assert.Equal(t, 5, row.Neighbors)
	assert.Equal(t, 0.3, row.MedianR)
	assert.InDelta(t, 0.6, row.Physical.Median, 1e-9)
	assert.Equal(t, 5.0, row.Physical.Mu)
	assert.Equal(t, 1.0, row.Physical.Gamma)
	assert.Equal(t, "MAN", row.Site)
	assert.Equal(t, run.ID, row.RunID)
	assert.Equal(t, domain.MomentSigma, row.Moment)

	assert.Equal(t, 8, run.Exhausted)
	require.Len(t, run.Passes, 2)

	assert.Equal(t, run.Rows, sink.rows)
	assert.Equal(t, domain.MomentSigma, sink.moment)

	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, run.Rows, p.FitRows())
	assert.Same(t, run, p.LastRun())

	assert.Equal(t, 6.0, testutil.ToFloat64(metrics.RecordsLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsPublished.WithLabelValues("memory")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_CellIndex(t *testing.T) {
	params := testParams()
	params.Index = spatial.KindCells
	p := pipeline.New(&mockSource{in: clusterInputs()}, nil, params, discardLogger(), newTestMetrics())

	run, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Rows, 1)
	assert.Equal(t, 0.3, run.Rows[0].MedianR)
}

func TestPipeline_Run_OccupancyZero(t *testing.T) {
	params := testParams()
	params.Occupancy = 0
	sink := &mockSink{name: "memory"}
	p := pipeline.New(&mockSource{in: clusterInputs()}, []pipeline.Sink{sink}, params, discardLogger(), newTestMetrics())

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Empty(t, sink.rows)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_EmptyRadii(t *testing.T) {
	in := clusterInputs()
	in.Radii = nil
	sink := &mockSink{name: "memory"}
	p := pipeline.New(&mockSource{in: in}, []pipeline.Sink{sink}, testParams(), discardLogger(), newTestMetrics())

	run, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, run.Rows)
	assert.Equal(t, 9, run.Exhausted)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_SourceError(t *testing.T) {
	p := pipeline.New(&mockSource{err: errors.New("disk gone")}, nil, testParams(), discardLogger(), newTestMetrics())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestPipeline_Run_RenormLookupMiss(t *testing.T) {
	params := testParams()
	params.Target = domain.MomentKappa
	p := pipeline.New(&mockSource{in: clusterInputs()}, nil, params, discardLogger(), newTestMetrics())

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrLookupMiss)
}

func TestPipeline_Run_DegenerateRange(t *testing.T) {
	in := clusterInputs()
	in.Renorm = domain.NewRenormTable([]domain.RenormEntry{
		{RenormType: "flux_std", Moment: domain.MomentMu, XMin: 0, XMax: 10},
		{RenormType: "flux_std", Moment: domain.MomentGamma, XMin: 2, XMax: 2},
		{RenormType: "flux_std", Moment: domain.MomentSigma, XMin: 0, XMax: 2},
	})
	p := pipeline.New(&mockSource{in: in}, nil, testParams(), discardLogger(), newTestMetrics())

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrDegenerateRange)
}

func TestPipeline_Run_NonFiniteRangeFailsBeforeFit(t *testing.T) {
	in := clusterInputs()
	in.Renorm = domain.NewRenormTable([]domain.RenormEntry{
		{RenormType: "flux_std", Moment: domain.MomentMu, XMin: math.NaN(), XMax: 10},
		{RenormType: "flux_std", Moment: domain.MomentGamma, XMin: -1, XMax: 3},
		{RenormType: "flux_std", Moment: domain.MomentSigma, XMin: 0, XMax: 2},
	})
	sink := &mockSink{}
	p := pipeline.New(&mockSource{in: in}, []pipeline.Sink{sink}, testParams(), discardLogger(), newTestMetrics())

	run, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Nil(t, run)
	assert.Empty(t, sink.rows)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CatalogMiss(t *testing.T) {
	in := clusterInputs()
	in.Catalog = domain.NewCatalog([]domain.Site{{ID: "PAY", Instrument: "2DVD"}})
	p := pipeline.New(&mockSource{in: in}, nil, testParams(), discardLogger(), newTestMetrics())

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrLookupMiss)
}

func TestPipeline_Run_CatalogInstrument(t *testing.T) {
	in := clusterInputs()
	in.Catalog = domain.NewCatalog([]domain.Site{{ID: "MAN", Instrument: "RD80", AreaInstrument: 0.005, TimeResolution: 60}})
	p := pipeline.New(&mockSource{in: in}, nil, testParams(), discardLogger(), newTestMetrics())

	run, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RD80", run.Site.Instrument)
	require.Len(t, run.Rows, 1)
	assert.Equal(t, "RD80", run.Rows[0].Instrument)
}

func TestPipeline_Run_SinkErrorDoesNotStopOtherSinks(t *testing.T) {
	bad := &mockSink{name: "kafka", err: errors.New("broker down")}
	good := &mockSink{name: "table"}
	metrics := newTestMetrics()
	p := pipeline.New(&mockSource{in: clusterInputs()}, []pipeline.Sink{bad, good}, testParams(), discardLogger(), metrics)

	run, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink kafka")
	require.NotNil(t, run)
	assert.Len(t, good.rows, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PublishErrors.WithLabelValues("kafka")))
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	p := pipeline.New(&mockSource{in: clusterInputs()}, nil, testParams(), discardLogger(), newTestMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, p.LastRun())
}

func TestPipeline_Close(t *testing.T) {
	a, b := &mockSink{name: "a"}, &mockSink{name: "b"}
	p := pipeline.New(&mockSource{}, []pipeline.Sink{a, b}, testParams(), discardLogger(), newTestMetrics())

	require.NoError(t, p.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
