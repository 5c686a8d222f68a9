package laf

import (
	"github.com/couchcryptid/dsd-laf/internal/domain"
)

// NewGrid returns the Cartesian product of the axis with itself, all centers
// active. Order is mu-major: every gamma value for the first mu, then the
// next mu.
func NewGrid(spec domain.GridSpec) ([]domain.GridCenter, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	axis := spec.Axis()
	centers := make([]domain.GridCenter, 0, len(axis)*len(axis))
	for _, mu := range axis {
		for _, gamma := range axis {
			centers = append(centers, domain.GridCenter{MuR: mu, GammaR: gamma, Status: domain.CenterActive})
		}
	}
	return centers, nil
}

// CentersAt builds active grid centers at arbitrary positions.
func CentersAt(points ...[2]float64) []domain.GridCenter {
	centers := make([]domain.GridCenter, len(points))
	for i, p := range points {
		centers[i] = domain.GridCenter{MuR: p[0], GammaR: p[1], Status: domain.CenterActive}
	}
	return centers
}
