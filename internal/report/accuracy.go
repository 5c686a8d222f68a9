// Package report derives summary statistics from fit tables: the spread of
// the local estimates of one fit, and the discrepancy between the fits of two
// sites.
package report

import (
	"cmp"
	"encoding/csv"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/couchcryptid/dsd-laf/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Histogram bin widths of the coefficient of variation.
const (
	PDFBinWidth = 0.05
	CDFBinWidth = 0.01
)

// Variables of the accuracy report.
const (
	VarCoeffVar    = "coeffvar"
	VarCoeffVar595 = "coeffvar595"
)

// AccuracyRow is one histogram bin of the accuracy report. CumProb is NaN
// for pdf rows.
type AccuracyRow struct {
	AnalysisType string
	Variable     string
	Value        float64
	Prob         float64
	CumProb      float64
	AvgRadius    float64
	Site         string
}

// spread is the per-row dispersion of a local estimate relative to its median.
type spread struct {
	coeffVar    float64 // |(q3 - q1) / 2 / median|
	coeffVar595 float64 // |(p95 - p5) / 2 / median|
	radius      float64
	site        string
}

// Accuracy builds the pdf and cdf of the two coefficients of variation of
// rows. Probabilities are relative to len(rows). Rows whose median is zero
// or not finite carry no coefficient and are skipped; the count is returned.
func Accuracy(rows []domain.FitRow) (out []AccuracyRow, skipped int) {
	spreads := make([]spread, 0, len(rows))
	for _, r := range rows {
		med := r.Physical.Median
		if med == 0 || math.IsNaN(med) || math.IsInf(med, 0) {
			skipped++
			continue
		}
		spreads = append(spreads, spread{
			coeffVar:    math.Abs((r.Physical.Q3 - r.Physical.Q1) / 2 / med),
			coeffVar595: math.Abs((r.Physical.P95 - r.Physical.P5) / 2 / med),
			radius:      r.Radius,
			site:        r.Site,
		})
	}
	total := float64(len(rows))
	if total == 0 {
		return nil, 0
	}

	coeffVar := func(s spread) float64 { return s.coeffVar }
	coeffVar595 := func(s spread) float64 { return s.coeffVar595 }

	out = append(out, histogram(spreads, coeffVar, PDFBinWidth, total, "pdf", VarCoeffVar)...)
	out = append(out, histogram(spreads, coeffVar595, PDFBinWidth, total, "pdf", VarCoeffVar595)...)
	out = append(out, histogram(spreads, coeffVar, CDFBinWidth, total, "cdf", VarCoeffVar)...)
	out = append(out, histogram(spreads, coeffVar595, CDFBinWidth, total, "cdf", VarCoeffVar595)...)
	return out, skipped
}

type binKey struct {
	bin  int
	site string
}

// histogram groups spreads by (bin, site) in ascending order. cdf rows carry
// the running sum of prob over the groups.
func histogram(spreads []spread, value func(spread) float64, width, total float64, kind, variable string) []AccuracyRow {
	radii := make(map[binKey][]float64)
	for _, s := range spreads {
		k := binKey{bin: int(math.Floor(value(s) / width)), site: s.site}
		radii[k] = append(radii[k], s.radius)
	}

	keys := make([]binKey, 0, len(radii))
	for k := range radii {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b binKey) int {
		if c := cmp.Compare(a.bin, b.bin); c != 0 {
			return c
		}
		return cmp.Compare(a.site, b.site)
	})

	rows := make([]AccuracyRow, 0, len(keys))
	cum := 0.0
	for _, k := range keys {
		rr := radii[k]
		prob := float64(len(rr)) / total
		row := AccuracyRow{
			AnalysisType: kind,
			Variable:     variable,
			Value:        float64(k.bin) * width,
			Prob:         prob,
			CumProb:      math.NaN(),
			AvgRadius:    stat.Mean(rr, nil),
			Site:         k.site,
		}
		if kind == "cdf" {
			cum += prob
			row.CumProb = cum
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteAccuracy writes the report space-separated with a header; absent
// values are written as NaN.
func WriteAccuracy(w io.Writer, rows []AccuracyRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = ' '
	if err := cw.Write([]string{"analysis_type", "variable", "value", "prob", "cumprob", "avg_radius", "site"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.AnalysisType, r.Variable,
			formatFloat(r.Value), formatFloat(r.Prob), formatFloat(r.CumProb), formatFloat(r.AvgRadius),
			r.Site,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
