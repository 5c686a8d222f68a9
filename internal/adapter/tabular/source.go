package tabular

import (
	"context"

	"github.com/couchcryptid/dsd-laf/internal/domain"
	"github.com/couchcryptid/dsd-laf/internal/pipeline"
)

// FileSource loads fit inputs from files on disk.
// It implements pipeline.Source.
type FileSource struct {
	Moments     string
	RenormTable string
	RadiusFile  string
	// Catalog is optional.
	Catalog string
	// Target is the moment column the moment table must carry.
	Target domain.Moment
}

// Load reads every configured file.
func (s FileSource) Load(_ context.Context) (pipeline.Inputs, error) {
	var in pipeline.Inputs
	var err error

	if in.Records, err = ReadMomentsFile(s.Moments, s.Target); err != nil {
		return pipeline.Inputs{}, err
	}
	if in.Renorm, err = ReadRenormTableFile(s.RenormTable); err != nil {
		return pipeline.Inputs{}, err
	}
	if in.Radii, err = ReadRadiiFile(s.RadiusFile); err != nil {
		return pipeline.Inputs{}, err
	}
	if s.Catalog != "" {
		if in.Catalog, err = ReadCatalogFile(s.Catalog); err != nil {
			return pipeline.Inputs{}, err
		}
	}
	return in, nil
}
