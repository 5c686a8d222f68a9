// Package domain models drop-size distribution (DSD) moments and the
// renormalized space the local adaptive fit works in.
//
// # Data Source
//
// Moment tables come from an upstream moment calculator run over disdrometer
// records (RD80, Parsivel, 2DVD, ...). Each record carries the mean diameter
// and the higher moments of its drop-size distribution:
//
//	mu     mean diameter
//	sigma  standard deviation
//	gamma  skewness
//	kappa  kurtosis
//	eta    5th central moment
//
// Records whose spectrum is empty yield NaN moments; they cannot fall inside
// a closed distance ball and are dropped before indexing.
//
// # Renormalization
//
// A renormalization table lists, per renormalization type and moment, the
// span [xmin, xmax] used to rescale a physical value into the canonical space:
//
//	x_r = (x - xmin) / (xmax - xmin)
//	x   = x_r * (xmax - xmin) + xmin
//
// Lookups are keyed by (renorm_type, statistical_moment) and must resolve to
// exactly one row. A zero span is a [DegenerateRangeError].
//
// Only three moments take part in a fit: mu and gamma are the coordinates of
// the canonical plane, and one of sigma, kappa or eta is the target value.
// Un-renormalized output values are rounded to 6 fractional digits, halves to
// even.
//
// # Grid Centers
//
// A [GridCenter] starts active and moves at most once: to resolved when some
// radius gathers enough neighbors, or to exhausted when none does.
// Exhausted centers produce no output row.
package domain
