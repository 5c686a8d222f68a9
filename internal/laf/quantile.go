package laf

import (
	"math"
	"slices"

	"github.com/couchcryptid/dsd-laf/internal/domain"
)

// Summary holds the five quantiles reported per grid center.
type Summary struct {
	Median float64
	Q1     float64
	Q3     float64
	P5     float64
	P95    float64
}

// Summarize computes the 5th, 25th, 50th, 75th and 95th percentiles of
// values, each rounded to 6 digits. values is not modified. It panics on an
// empty slice; callers only summarize neighborhoods that met occupancy.
func Summarize(values []float64) Summary {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return Summary{
		Median: domain.Round6(quantileSorted(sorted, 0.5)),
		Q1:     domain.Round6(quantileSorted(sorted, 0.25)),
		Q3:     domain.Round6(quantileSorted(sorted, 0.75)),
		P5:     domain.Round6(quantileSorted(sorted, 0.05)),
		P95:    domain.Round6(quantileSorted(sorted, 0.95)),
	}
}

// quantileSorted estimates the p-quantile of ascending data by linear
// interpolation between closest ranks: h = (n-1)p.
func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		panic("laf: quantile of empty sample")
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return lerp(sorted[lo], sorted[lo+1], h-float64(lo))
}

// lerp interpolates from whichever end is closer, which keeps the result
// inside [a, b].
func lerp(a, b, t float64) float64 {
	d := b - a
	if t < 0.5 {
		return a + d*t
	}
	return b - d*(1-t)
}
