package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/couchcryptid/dsd-laf/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "laf-fit-results", cfg.KafkaSinkTopic)
	assert.Equal(t, 50, cfg.BatchSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("LAF_WORKERS", "3")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("BATCH_SIZE", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, 100, cfg.BatchSize)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidWorkers(t *testing.T) {
	for _, v := range []string{"0", "-2", "many"} {
		t.Setenv("LAF_WORKERS", v)
		_, err := Load()
		require.Error(t, err, v)
		assert.Contains(t, err.Error(), "LAF_WORKERS")
	}
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func validManifest() Manifest {
	m := DefaultManifest()
	m.Moments = "moments.csv"
	m.RenormTable = "renorm.csv"
	m.RenormType = "flux_std"
	m.Moment = "sigma"
	m.RadiusFile = "radius.txt"
	m.Site = "MAN"
	return m
}

func TestDefaultManifest(t *testing.T) {
	m := DefaultManifest()
	assert.Equal(t, 20, m.Occupancy)
	assert.Equal(t, "flux", m.Representation)
	assert.Equal(t, "kdtree", m.Index)
	assert.Equal(t, domain.DefaultGridSpec, m.Grid)
}

func TestLoadManifest_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
moments: /data/moments.txt
renorm_table: /data/renorm.csv
renorm_type: flux_std
moment: kappa
radius_file: /data/radius.txt
occupancy: 30
site: MAN
grid:
  step: 0.05
`), 0o600))

	t.Setenv("LAF_OCCUPANCY", "12")
	t.Setenv("LAF_GRID_MIN", "-0.25")
	t.Setenv("LAF_INDEX", "cells")

	m, err := LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/moments.txt", m.Moments)
	assert.Equal(t, "/data/renorm.csv", m.RenormTable)
	assert.Equal(t, "flux_std", m.RenormType)
	assert.Equal(t, "kappa", m.Moment)
	assert.Equal(t, 12, m.Occupancy)
	assert.Equal(t, "cells", m.Index)
	assert.Equal(t, "flux", m.Representation)
	assert.Equal(t, domain.GridSpec{Min: -0.25, Max: domain.DefaultGridMax, Step: 0.05}, m.Grid)
	require.NoError(t, m.Validate())
	assert.Equal(t, domain.MomentKappa, m.Target())
}

func TestLoadManifest_ManifestEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site: PAY\n"), 0o600))
	t.Setenv("LAF_MANIFEST", path)

	m, err := LoadManifest("")
	require.NoError(t, err)
	assert.Equal(t, "PAY", m.Site)
}

func TestLoadManifest_MissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestManifest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Manifest)
		field  string
	}{
		{"zero occupancy", func(m *Manifest) { m.Occupancy = 0 }, "occupancy"},
		{"negative occupancy", func(m *Manifest) { m.Occupancy = -3 }, "occupancy"},
		{"missing moments", func(m *Manifest) { m.Moments = "" }, "moments"},
		{"missing site", func(m *Manifest) { m.Site = " " }, "site"},
		{"coordinate as target", func(m *Manifest) { m.Moment = "mu" }, "moment"},
		{"unknown moment", func(m *Manifest) { m.Moment = "delta" }, "moment"},
		{"unknown representation", func(m *Manifest) { m.Representation = "radar" }, "representation"},
		{"unknown index", func(m *Manifest) { m.Index = "rtree" }, "index"},
		{"bad grid", func(m *Manifest) { m.Grid.Step = 0 }, "grid.step"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validManifest()
			tt.mutate(&m)
			err := m.Validate()
			require.ErrorIs(t, err, domain.ErrConfiguration)
			var cerr *domain.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
	require.NoError(t, validManifest().Validate())
}
