package tabular

import (
	"fmt"
	"os"

	"github.com/couchcryptid/dsd-laf/internal/domain"
)

// The *File helpers open path, parse it and name the file in errors.

func ReadMomentsFile(path string, required ...domain.Moment) ([]domain.MomentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := ReadMoments(f, required...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

func ReadRenormTableFile(path string) (*domain.RenormTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadRenormTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func ReadCatalogFile(path string) (*domain.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := ReadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func ReadRadiiFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	radii, err := ReadRadii(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return radii, nil
}
