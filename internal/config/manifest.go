package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/dsd-laf/internal/domain"
	"github.com/couchcryptid/dsd-laf/internal/spatial"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ManifestEnvPrefix prefixes environment overrides of manifest keys, e.g.
// LAF_OCCUPANCY or LAF_GRID_STEP.
const ManifestEnvPrefix = "LAF_"

// DefaultOccupancy is the neighbor count a center needs to resolve.
const DefaultOccupancy = 20

// Manifest describes one fit: which table to read, how to renormalize it,
// and how to run the estimator.
type Manifest struct {
	Moments        string          `koanf:"moments"`
	RenormTable    string          `koanf:"renorm_table"`
	RenormType     string          `koanf:"renorm_type"`
	Moment         string          `koanf:"moment"`
	RadiusFile     string          `koanf:"radius_file"`
	Occupancy      int             `koanf:"occupancy"`
	Site           string          `koanf:"site"`
	Catalog        string          `koanf:"catalog"`
	Representation string          `koanf:"representation"`
	Output         string          `koanf:"output"`
	Grid           domain.GridSpec `koanf:"grid"`
	Index          string          `koanf:"index"`
}

// DefaultManifest returns a manifest with every optional key at its default.
func DefaultManifest() Manifest {
	return Manifest{
		Occupancy:      DefaultOccupancy,
		Representation: string(domain.RepresentationFlux),
		Grid:           domain.DefaultGridSpec,
		Index:          string(spatial.KindKDTree),
	}
}

// LoadManifest layers defaults, the YAML file at path (if path is empty,
// LAF_MANIFEST is consulted), and LAF_ environment overrides. The result is
// not validated; callers apply flag overrides first and then call Validate.
func LoadManifest(path string) (Manifest, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("LAF_MANIFEST")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Manifest{}, fmt.Errorf("load manifest %s: %w", path, err)
		}
	}

	// LAF_RENORM_TABLE -> renorm_table, LAF_GRID_STEP -> grid.step.
	envProvider := env.Provider(ManifestEnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, ManifestEnvPrefix))
		if rest, ok := strings.CutPrefix(s, "grid_"); ok {
			return "grid." + rest
		}
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Manifest{}, fmt.Errorf("load manifest env: %w", err)
	}

	m := DefaultManifest()
	if err := k.UnmarshalWithConf("", &m, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// Validate checks the manifest before any file is read. All failures are
// configuration errors.
func (m Manifest) Validate() error {
	required := []struct{ field, value string }{
		{"moments", m.Moments},
		{"renorm_table", m.RenormTable},
		{"renorm_type", m.RenormType},
		{"moment", m.Moment},
		{"radius_file", m.RadiusFile},
		{"site", m.Site},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domain.ConfigErrorf(r.field, "is required")
		}
	}
	if m.Occupancy <= 0 {
		return domain.ConfigErrorf("occupancy", "must be a positive integer, got %d", m.Occupancy)
	}
	if _, err := domain.ParseTargetMoment(m.Moment); err != nil {
		return err
	}
	if _, err := domain.ParseRepresentation(m.Representation); err != nil {
		return err
	}
	if _, err := spatial.ParseKind(m.Index); err != nil {
		return domain.ConfigErrorf("index", "%v", err)
	}
	return m.Grid.Validate()
}

// Target returns the parsed target moment. It assumes Validate passed.
func (m Manifest) Target() domain.Moment {
	t, _ := domain.ParseTargetMoment(m.Moment)
	return t
}

// IndexKind returns the parsed spatial index kind. It assumes Validate passed.
func (m Manifest) IndexKind() spatial.Kind {
	k, _ := spatial.ParseKind(m.Index)
	return k
}
