package spatial

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTree is a balanced 2-d tree over the point cloud.
type KDTree struct {
	tree *kdtree.Tree
	n    int
}

// NewKDTree builds a KDTree. The input slice is not modified.
func NewKDTree(points []Point) *KDTree {
	ss := make(sites, len(points))
	for i, p := range points {
		ss[i] = site{X: p.X, Y: p.Y, Index: i}
	}
	t := &KDTree{n: len(points)}
	if len(ss) > 0 {
		t.tree = kdtree.New(ss, false)
	}
	return t
}

// Len returns the number of indexed points.
func (t *KDTree) Len() int { return t.n }

// WithinRadius returns the indices of all points within radius of center.
func (t *KDTree) WithinRadius(center Point, radius float64) []int {
	if t.tree == nil || radius < 0 {
		return nil
	}
	keep := kdtree.NewDistKeeper(radius * radius)
	t.tree.NearestSet(keep, site{X: center.X, Y: center.Y, Index: -1})

	out := make([]int, 0, len(keep.Heap))
	for _, cd := range keep.Heap {
		// The keeper is seeded with a sentinel carrying the radius.
		if cd.Comparable == nil {
			continue
		}
		out = append(out, cd.Comparable.(site).Index)
	}
	return out
}

// site is a point tagged with its position in the input slice.
type site struct {
	X, Y  float64
	Index int
}

func (s site) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(site)
	switch d {
	case 0:
		return s.X - q.X
	case 1:
		return s.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

func (s site) Dims() int { return 2 }

// Distance returns the squared Euclidean distance.
func (s site) Distance(c kdtree.Comparable) float64 {
	q := c.(site)
	dx := s.X - q.X
	dy := s.Y - q.Y
	return dx*dx + dy*dy
}

// sites satisfies kdtree.Interface.
type sites []site

func (p sites) Index(i int) kdtree.Comparable         { return p[i] }
func (p sites) Len() int                              { return len(p) }
func (p sites) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p sites) Pivot(d kdtree.Dim) int {
	return plane{sites: p, Dim: d}.Pivot()
}

// plane sorts sites along one dimension.
type plane struct {
	sites
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.sites[i].X < p.sites[j].X
	case 1:
		return p.sites[i].Y < p.sites[j].Y
	default:
		panic("illegal dimension")
	}
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.sites = p.sites[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.sites[i], p.sites[j] = p.sites[j], p.sites[i]
}
