package domain

import (
	"fmt"
	"math"
)

// RenormEntry is one row of the renormalization table.
type RenormEntry struct {
	RenormType string
	Moment     Moment
	XMin       float64
	XMax       float64
}

// Range is a resolved renormalization span.
type Range struct {
	Min float64
	Max float64
}

// Span returns Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Forward maps a physical value into the canonical space.
func (r Range) Forward(x float64) float64 { return (x - r.Min) / r.Span() }

// Inverse maps a canonical value back to physical units.
func (r Range) Inverse(x float64) float64 { return x*r.Span() + r.Min }

type renormKey struct {
	renormType string
	moment     Moment
}

// RenormTable indexes renormalization entries by (renorm type, moment).
// It is immutable after construction.
type RenormTable struct {
	entries map[renormKey][]RenormEntry
	size    int
}

// NewRenormTable indexes the given entries. Duplicates are kept so that
// Lookup can report them.
func NewRenormTable(entries []RenormEntry) *RenormTable {
	t := &RenormTable{entries: make(map[renormKey][]RenormEntry, len(entries)), size: len(entries)}
	for _, e := range entries {
		k := renormKey{renormType: e.RenormType, moment: e.Moment}
		t.entries[k] = append(t.entries[k], e)
	}
	return t
}

// Len returns the number of entries.
func (t *RenormTable) Len() int { return t.size }

// Lookup resolves the single entry for (renormType, m).
func (t *RenormTable) Lookup(renormType string, m Moment) (Range, error) {
	matches := t.entries[renormKey{renormType: renormType, moment: m}]
	switch {
	case len(matches) == 0:
		return Range{}, &LookupMissError{Kind: "renorm table", Key: fmt.Sprintf("(%s, %s)", renormType, m)}
	case len(matches) > 1:
		return Range{}, ConfigErrorf("renorm_table", "%d entries for (%s, %s), want exactly one", len(matches), renormType, m)
	}

	e := matches[0]
	if !finite(e.XMin) || !finite(e.XMax) {
		return Range{}, ConfigErrorf("renorm_table", "(%s, %s): bounds must be finite, got xmin %g xmax %g", renormType, m, e.XMin, e.XMax)
	}
	if e.XMax == e.XMin {
		return Range{}, &DegenerateRangeError{RenormType: renormType, Moment: m, Value: e.XMin}
	}
	if !(e.XMax > e.XMin) {
		return Range{}, ConfigErrorf("renorm_table", "(%s, %s): xmax %g < xmin %g", renormType, m, e.XMax, e.XMin)
	}
	return Range{Min: e.XMin, Max: e.XMax}, nil
}

// Renormalization holds the three spans taking part in one fit.
type Renormalization struct {
	RenormType string
	Target     Moment
	Mu         Range
	Gamma      Range
	Value      Range
}

// ResolveRenormalization looks up the mu, gamma and target spans. No other
// moment is consulted.
func ResolveRenormalization(t *RenormTable, renormType string, target Moment) (Renormalization, error) {
	if !target.Fittable() {
		return Renormalization{}, ConfigErrorf("moment", "%q is not a fittable moment", target)
	}
	mu, err := t.Lookup(renormType, MomentMu)
	if err != nil {
		return Renormalization{}, err
	}
	gamma, err := t.Lookup(renormType, MomentGamma)
	if err != nil {
		return Renormalization{}, err
	}
	value, err := t.Lookup(renormType, target)
	if err != nil {
		return Renormalization{}, err
	}
	return Renormalization{RenormType: renormType, Target: target, Mu: mu, Gamma: gamma, Value: value}, nil
}

// Forward renormalizes every finite record. Records with a non-finite
// coordinate or target value are skipped; the count is returned.
func (rn Renormalization) Forward(records []MomentRecord) (obs []Observation, skipped int) {
	obs = make([]Observation, 0, len(records))
	for _, r := range records {
		if !r.Finite(rn.Target) {
			skipped++
			continue
		}
		obs = append(obs, Observation{
			MuR:    rn.Mu.Forward(r.Mu),
			GammaR: rn.Gamma.Forward(r.Gamma),
			ValueR: rn.Value.Forward(r.Value(rn.Target)),
		})
	}
	return obs, skipped
}

// Inverse un-renormalizes one fit record, rounding every physical value to
// 6 fractional digits.
func (rn Renormalization) Inverse(rec FitRecord) PhysicalFit {
	return PhysicalFit{
		Mu:     Round6(rn.Mu.Inverse(rec.MuR)),
		Gamma:  Round6(rn.Gamma.Inverse(rec.GammaR)),
		Median: Round6(rn.Value.Inverse(rec.MedianR)),
		P5:     Round6(rn.Value.Inverse(rec.P5R)),
		Q1:     Round6(rn.Value.Inverse(rec.Q1R)),
		Q3:     Round6(rn.Value.Inverse(rec.Q3R)),
		P95:    Round6(rn.Value.Inverse(rec.P95R)),
	}
}

// Renormalize is the table-level forward transform.
func Renormalize(records []MomentRecord, t *RenormTable, renormType string, target Moment) ([]Observation, int, error) {
	rn, err := ResolveRenormalization(t, renormType, target)
	if err != nil {
		return nil, 0, err
	}
	obs, skipped := rn.Forward(records)
	return obs, skipped, nil
}

// Unrenormalize is the table-level inverse transform.
func Unrenormalize(records []FitRecord, t *RenormTable, renormType string, target Moment) ([]PhysicalFit, error) {
	rn, err := ResolveRenormalization(t, renormType, target)
	if err != nil {
		return nil, err
	}
	out := make([]PhysicalFit, len(records))
	for i, rec := range records {
		out[i] = rn.Inverse(rec)
	}
	return out, nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
