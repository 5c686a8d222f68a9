// Package spatial answers fixed-radius neighbor queries over a static 2-D
// point cloud.
//
// A point belongs to the neighborhood of a center when its Euclidean
// distance to the center is at most the radius (closed ball). Comparisons
// are done on squared distances. Returned neighbor lists hold indices into
// the slice the index was built from, in no particular order and without
// duplicates.
package spatial

import "fmt"

// Point is a position in the canonical (mu_r, gamma_r) plane.
type Point struct {
	X, Y float64
}

// Index is a read-only fixed-radius range-search structure. Implementations
// are safe for concurrent queries.
type Index interface {
	// WithinRadius returns the indices of all points p with |p - center| <= radius.
	WithinRadius(center Point, radius float64) []int
	// Len returns the number of indexed points.
	Len() int
}

// QueryWithinRadius runs WithinRadius for each center, returning one
// neighbor list per center in center order.
func QueryWithinRadius(idx Index, centers []Point, radius float64) [][]int {
	out := make([][]int, len(centers))
	for i, c := range centers {
		out[i] = idx.WithinRadius(c, radius)
	}
	return out
}

// Kind selects an Index implementation.
type Kind string

const (
	KindKDTree Kind = "kdtree"
	KindCells  Kind = "cells"
)

// DefaultCellSize is the cell edge used by KindCells, one grid step of the
// canonical plane.
const DefaultCellSize = 0.02

// ParseKind validates an index kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindKDTree, KindCells:
		return k, nil
	}
	return "", fmt.Errorf("unknown spatial index %q (want kdtree or cells)", s)
}

// Build constructs an index of the given kind over points.
func Build(kind Kind, points []Point) (Index, error) {
	switch kind {
	case KindKDTree, "":
		return NewKDTree(points), nil
	case KindCells:
		return NewCellGrid(points, DefaultCellSize), nil
	}
	return nil, fmt.Errorf("unknown spatial index %q", kind)
}
