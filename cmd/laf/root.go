package main

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/dsd-laf/internal/adapter/kafka"
	"github.com/couchcryptid/dsd-laf/internal/adapter/tabular"
	"github.com/couchcryptid/dsd-laf/internal/config"
	"github.com/couchcryptid/dsd-laf/internal/domain"
	"github.com/couchcryptid/dsd-laf/internal/observability"
	"github.com/couchcryptid/dsd-laf/internal/pipeline"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "laf",
		Short:        "Local adaptive fitting of drop-size moments",
		SilenceUsage: true,
	}
	root.AddCommand(newFitCmd(), newServeCmd(), newAccuracyCmd(), newCompareCmd())
	return root
}

// manifestFlags override manifest keys. Only flags set on the command line
// take effect.
type manifestFlags struct {
	path           string
	moments        string
	renormTable    string
	renormType     string
	moment         string
	radiusFile     string
	occupancy      int
	site           string
	catalog        string
	representation string
	output         string
	index          string
}

func (f *manifestFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.path, "manifest", "", "YAML run manifest (default $LAF_MANIFEST)")
	fs.StringVar(&f.moments, "moments", "", "moment table")
	fs.StringVar(&f.renormTable, "renorm-table", "", "renormalization table")
	fs.StringVar(&f.renormType, "renorm-type", "", "renormalization type")
	fs.StringVar(&f.moment, "moment", "", "target moment (sigma, kappa, eta)")
	fs.StringVar(&f.radiusFile, "radius-file", "", "radius sequence file")
	fs.IntVar(&f.occupancy, "occupancy", config.DefaultOccupancy, "neighbors a center needs to resolve")
	fs.StringVar(&f.site, "site", "", "site acronym")
	fs.StringVar(&f.catalog, "catalog", "", "site catalog")
	fs.StringVar(&f.representation, "representation", "", "flux, cloudexpo, cloudplaw or cloud2dvd")
	fs.StringVarP(&f.output, "output", "o", "", "fit table output path (- for stdout)")
	fs.StringVar(&f.index, "index", "", "spatial index (kdtree, cells)")
}

// resolve loads the manifest, applies the flags that were set and validates
// the result.
func (f *manifestFlags) resolve(cmd *cobra.Command) (config.Manifest, error) {
	m, err := config.LoadManifest(f.path)
	if err != nil {
		return config.Manifest{}, err
	}

	fs := cmd.Flags()
	for _, o := range []struct {
		name string
		dst  *string
		val  string
	}{
		{"moments", &m.Moments, f.moments},
		{"renorm-table", &m.RenormTable, f.renormTable},
		{"renorm-type", &m.RenormType, f.renormType},
		{"moment", &m.Moment, f.moment},
		{"radius-file", &m.RadiusFile, f.radiusFile},
		{"site", &m.Site, f.site},
		{"catalog", &m.Catalog, f.catalog},
		{"representation", &m.Representation, f.representation},
		{"output", &m.Output, f.output},
		{"index", &m.Index, f.index},
	} {
		if fs.Changed(o.name) {
			*o.dst = o.val
		}
	}
	if fs.Changed("occupancy") {
		m.Occupancy = f.occupancy
	}

	if err := m.Validate(); err != nil {
		return config.Manifest{}, err
	}
	return m, nil
}

// setup loads the service config and builds the logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, observability.NewLogger(cfg), nil
}

// newPipeline wires the file source, the table sink (when tableSink is set)
// and the Kafka sink (when enabled) around a validated manifest.
func newPipeline(cfg *config.Config, m config.Manifest, tableSink bool, logger *slog.Logger, metrics *observability.Metrics) *pipeline.Pipeline {
	target := m.Target()
	src := tabular.FileSource{
		Moments:     m.Moments,
		RenormTable: m.RenormTable,
		RadiusFile:  m.RadiusFile,
		Catalog:     m.Catalog,
		Target:      target,
	}

	var sinks []pipeline.Sink
	if tableSink {
		sinks = append(sinks, tabular.NewFileSink(m.Output))
	}
	if cfg.KafkaEnabled {
		sinks = append(sinks, kafka.NewWriter(cfg, logger))
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	}

	params := pipeline.Params{
		RenormType:     m.RenormType,
		Target:         target,
		Site:           m.Site,
		Representation: domain.Representation(m.Representation),
		Occupancy:      m.Occupancy,
		Grid:           m.Grid,
		Index:          m.IndexKind(),
		Workers:        cfg.Workers,
	}
	return pipeline.New(src, sinks, params, logger, metrics)
}
